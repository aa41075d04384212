package errsink_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/errsink"
	"github.com/donaldgifford/tenant-storefront/internal/notify"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureNotifier struct {
	got chan *notify.FailurePayload
	err error
}

func (c *captureNotifier) SendLoadFailure(_ context.Context, f *notify.FailurePayload) error {
	c.got <- f
	return c.err
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want domain.ErrorRecord
	}{
		{
			name: "network",
			err:  catalog.NewNetworkError("executing catalog request", errors.New("refused")),
			want: domain.ErrorRecord{
				Title:   "Connection Error",
				Message: "Unable to reach the catalog service. Please check your connection.",
			},
		},
		{
			name: "http status",
			err:  catalog.NewHTTPStatusError(500, "boom"),
			want: domain.ErrorRecord{
				Title:   "Server Error",
				Message: "The catalog service responded with status 500.",
			},
		},
		{
			name: "business with server message",
			err:  catalog.NewBusinessError(404, "Category not found"),
			want: domain.ErrorRecord{Title: "Error", Message: "Category not found"},
		},
		{
			name: "business without message",
			err:  &catalog.FetchError{Kind: catalog.KindBusiness, StatusCode: 500},
			want: domain.ErrorRecord{Title: "Error", Message: catalog.DefaultBusinessMessage},
		},
		{
			name: "unclassified error",
			err:  errors.New("something odd"),
			want: domain.ErrorRecord{Title: "Error", Message: catalog.DefaultBusinessMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errsink.Normalize(tt.err))
		})
	}
}

func TestSink_ReportAndDismiss(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	s := errsink.New(
		errsink.WithLogger(quietLogger()),
		errsink.WithNowFunc(func() time.Time { return now }),
	)

	assert.Equal(t, errsink.Display{}, s.Display())
	assert.Nil(t, s.Last())

	s.Report(context.Background(), 1, catalog.NewHTTPStatusError(500, "boom"))

	d := s.Display()
	assert.True(t, d.Open)
	assert.Equal(t, "Server Error", d.Title)

	last := s.Last()
	require.NotNil(t, last)
	assert.Equal(t, catalog.KindHTTPStatus, last.Kind)
	assert.Equal(t, 1, last.PageIndex)
	assert.Equal(t, now, last.ReportedAt)

	s.Dismiss()
	d = s.Display()
	assert.False(t, d.Open)
	assert.Equal(t, "Server Error", d.Title, "dismiss keeps the recorded failure")
	assert.NotNil(t, s.Last())
}

func TestSink_ReportNilIsIgnored(t *testing.T) {
	t.Parallel()

	s := errsink.New(errsink.WithLogger(quietLogger()))
	s.Report(context.Background(), 1, nil)
	assert.False(t, s.Display().Open)
}

func TestSink_ReportReopensAfterDismiss(t *testing.T) {
	t.Parallel()

	s := errsink.New(errsink.WithLogger(quietLogger()))
	s.Report(context.Background(), 1, catalog.NewBusinessError(400, "first"))
	s.Dismiss()
	s.Report(context.Background(), 2, catalog.NewBusinessError(400, "second"))

	d := s.Display()
	assert.True(t, d.Open)
	assert.Equal(t, "second", d.Message)
}

func TestSink_ForwardsToNotifier(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{got: make(chan *notify.FailurePayload, 1), err: errors.New("webhook down")}
	s := errsink.New(
		errsink.WithLogger(quietLogger()),
		errsink.WithNotifier(n),
		errsink.WithOwner(errsink.Context{SessionID: "s-1", TenantID: "t-1", CategoryID: "c-1"}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.Report(ctx, 4, catalog.NewBusinessError(401, "denied"))
	cancel() // notification must not depend on the reporter's context

	select {
	case f := <-n.got:
		assert.Equal(t, "s-1", f.SessionID)
		assert.Equal(t, "t-1", f.TenantID)
		assert.Equal(t, "c-1", f.CategoryID)
		assert.Equal(t, 4, f.PageIndex)
		assert.Equal(t, "business", f.Kind)
		assert.Equal(t, "denied", f.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}
}
