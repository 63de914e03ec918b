package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/pkg/pubsub"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

// startVerify runs the verifier without redis and kafka, an integrity
// violation is only reported to the output.
func (s *srv) startVerify(cctx *cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.publisher = discardPublisher{}
	s.loadFormula()
	s.loadRepos()
	s.loadDomains()

	resp, err := s.raffleDomain.Verify(s.ctx, &model.VerifyRequest{RaffleID: cctx.String("raffle")})
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(b))
	if !resp.Valid {
		return cli.Exit("verification failed", 1)
	}

	return nil
}

func (s *srv) startGenerateBLSKey(*cli.Context) error {
	secret, public, err := draw.GenerateBLSKey()
	if err != nil {
		return err
	}

	fmt.Printf("secret key: %s\npublic key: %s\n", secret, public)
	return nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pubsub.Pack) error {
	return nil
}
