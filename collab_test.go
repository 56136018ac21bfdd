package seeker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// mockFetcher is a testify/mock double for the Fetcher collaborator, used
// the way the teacher's fetcher_test.go mocks its HTTP client collaborator
// rather than standing up a real network call.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (FetchOutcome, error) {
	args := m.Called(ctx, url)
	outcome, _ := args.Get(0).(FetchOutcome)
	return outcome, args.Error(1)
}

func TestFetcherMockReturnsConfiguredOutcome(t *testing.T) {
	m := &mockFetcher{}
	want := FetchOutcome{URL: "https://example.com/", StatusCode: 200, FetchedAt: time.Unix(0, 0)}
	m.On("Fetch", mock.Anything, "https://example.com/").Return(want, nil)

	var f Fetcher = m
	got, err := f.Fetch(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got != want {
		t.Fatalf("Fetch = %+v, want %+v", got, want)
	}
	m.AssertExpectations(t)
}

func TestFetcherMockPropagatesError(t *testing.T) {
	m := &mockFetcher{}
	wantErr := errors.New("connection refused")
	m.On("Fetch", mock.Anything, "https://unreachable.example.com/").Return(FetchOutcome{}, wantErr)

	var f Fetcher = m
	_, err := f.Fetch(context.Background(), "https://unreachable.example.com/")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Fetch error = %v, want %v", err, wantErr)
	}
	m.AssertExpectations(t)
}
