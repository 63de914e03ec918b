package draw

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rafflehub/backend/pkg/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing/bn256"
	"go.dedis.ch/kyber/v3/sign/bls"
	"go.dedis.ch/kyber/v3/util/random"
)

const (
	fieldSignature = "signature"
	fieldPublicKey = "public_key"
)

var suite = bn256.NewSuite()

// blsFormula signs the input with a BLS key on the bn256 curve and uses the
// SHA-256 digest of the signature as the seed. A BLS signature is unique per
// key and message and can be checked with the published public key.
type blsFormula struct {
	secret kyber.Scalar
	public kyber.Point
}

func NewBLSFormula(secretKey string) (*blsFormula, error) {
	if secretKey == "" {
		return &blsFormula{}, nil
	}

	b, err := hex.DecodeString(secretKey)
	if err != nil {
		return nil, fmt.Errorf("invalid bls secret key: %w", err)
	}

	secret := suite.G2().Scalar()
	if err := secret.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("invalid bls secret key: %w", err)
	}

	return &blsFormula{
		secret: secret,
		public: suite.G2().Point().Mul(secret, nil),
	}, nil
}

// GenerateBLSKey returns a new secret key and its public key, both hex encoded.
func GenerateBLSKey() (string, string, error) {
	secret, public := bls.NewKeyPair(suite, random.New())
	sk, err := secret.MarshalBinary()
	if err != nil {
		return "", "", err
	}

	pk, err := public.MarshalBinary()
	if err != nil {
		return "", "", err
	}

	return hex.EncodeToString(sk), hex.EncodeToString(pk), nil
}

func (f *blsFormula) Name() string {
	return BLSBN256
}

func (f *blsFormula) Seed(input []byte) ([]byte, map[string]string, error) {
	if f.secret == nil {
		return nil, nil, errors.New("bls secret key is not configured")
	}

	sig, err := bls.Sign(suite, f.secret, input)
	if err != nil {
		return nil, nil, err
	}

	pk, err := f.public.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	published := map[string]string{
		fieldSignature: hex.EncodeToString(sig),
		fieldPublicKey: hex.EncodeToString(pk),
	}

	return crypto.SHA256(sig), published, nil
}

func (f *blsFormula) Check(input []byte, published map[string]string) ([]byte, error) {
	sig, err := hex.DecodeString(published[fieldSignature])
	if err != nil || len(sig) == 0 {
		return nil, errors.New("invalid signature")
	}

	pk, err := hex.DecodeString(published[fieldPublicKey])
	if err != nil || len(pk) == 0 {
		return nil, errors.New("invalid public key")
	}

	public := suite.G2().Point()
	if err := public.UnmarshalBinary(pk); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	if f.public != nil && !f.public.Equal(public) {
		return nil, errors.New("public key does not match the configured key")
	}

	if err := bls.Verify(suite, public, input, sig); err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	return crypto.SHA256(sig), nil
}
