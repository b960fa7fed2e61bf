package obs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestTimeLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	defer func() { log.Logger = prev }()

	ctx := WithRequestID(context.Background(), "r-1")
	assert.Equal(t, "r-1", RequestID(ctx))

	done := Time(ctx, "solve")
	var err error
	done(&err)
	assert.Contains(t, buf.String(), `"op":"solve"`)
	assert.Contains(t, buf.String(), `"req_id":"r-1"`)

	buf.Reset()
	err = errors.New("boom")
	Time(ctx, "solve")(&err)
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
