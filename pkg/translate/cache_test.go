package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubClient struct {
	calls int
	out   string
	err   error
}

func (s *stubClient) Translate(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestCached_TranslatesOnce(t *testing.T) {
	stub := &stubClient{out: "Отлично"}
	c := NewCached(stub, 10, time.Hour)

	assert.Equal(t, "Отлично", c.Translate(context.Background(), "좋아요"))
	assert.Equal(t, "Отлично", c.Translate(context.Background(), "좋아요"))
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, 1, c.Len())
}

func TestCached_NonKoreanSkipsClient(t *testing.T) {
	stub := &stubClient{out: "unused"}
	c := NewCached(stub, 10, time.Hour)

	assert.Equal(t, "Clean title", c.Translate(context.Background(), "Clean title"))
	assert.Equal(t, 0, stub.calls)
	assert.Equal(t, 1, c.Len())
}

func TestCached_FailureCachesOriginal(t *testing.T) {
	stub := &stubClient{err: errors.New("down")}
	c := NewCached(stub, 10, time.Hour)

	assert.Equal(t, "좋아요", c.Translate(context.Background(), "좋아요"))
	assert.Equal(t, "좋아요", c.Translate(context.Background(), "좋아요"))
	assert.Equal(t, 1, stub.calls)
}

func TestCached_BlankPassesThrough(t *testing.T) {
	stub := &stubClient{}
	c := NewCached(stub, 10, time.Hour)

	assert.Equal(t, "  ", c.Translate(context.Background(), "  "))
	assert.Equal(t, 0, c.Len())
}

func TestPassthrough(t *testing.T) {
	assert.Equal(t, "좋아요", Passthrough{}.Translate(context.Background(), "좋아요"))
}
