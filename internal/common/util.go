package common

import (
	"context"
	"time"

	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/xcontext"
)

// Now returns the current time in UTC with millisecond precision, which is the
// precision stored in database.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Pagination validates the offset and limit of a list request.
func Pagination(ctx context.Context, offset, limit int) (int, int, error) {
	apiCfg := xcontext.Configs(ctx).ApiServer
	if limit == 0 {
		limit = apiCfg.DefaultLimit
	}

	if limit < 0 || offset < 0 {
		return 0, 0, errorx.New(errorx.BadRequest, "Offset and limit must be positive")
	}

	if limit > apiCfg.MaxLimit {
		return 0, 0, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", apiCfg.MaxLimit)
	}

	return offset, limit, nil
}
