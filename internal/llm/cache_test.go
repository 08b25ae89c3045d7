package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

func textRequest(content string) Request {
	return Request{
		Messages: []Message{{Role: RoleUser, Content: content}},
	}
}

func TestCache_HitSkipsProvider(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`"hello"`)})
	cached := WithCache(mock, 8)

	first, err := cached.Generate(context.Background(), textRequest("prompt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cached.Generate(context.Background(), textRequest("prompt"))
	if err != nil {
		t.Fatalf("unexpected error on cached call: %v", err)
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", mock.CallCount())
	}
	if string(first.Content) != string(second.Content) {
		t.Error("cached response differs from the original")
	}
}

func TestCache_DistinctPromptsMiss(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`"a"`)},
		MockResponse{Content: json.RawMessage(`"b"`)},
	)
	cached := WithCache(mock, 8)

	_, _ = cached.Generate(context.Background(), textRequest("one"))
	_, _ = cached.Generate(context.Background(), textRequest("two"))

	if mock.CallCount() != 2 {
		t.Errorf("expected 2 provider calls, got %d", mock.CallCount())
	}
}

func TestCache_ImagePrefixInKey(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`"a"`)},
		MockResponse{Content: json.RawMessage(`"b"`)},
	)
	cached := WithCache(mock, 8)

	// Same prompt, images differing within the first 50 bytes: two calls.
	reqA := textRequest("describe")
	reqA.Image = []byte("image-payload-A")
	reqB := textRequest("describe")
	reqB.Image = []byte("image-payload-B")

	_, _ = cached.Generate(context.Background(), reqA)
	_, _ = cached.Generate(context.Background(), reqB)

	if mock.CallCount() != 2 {
		t.Errorf("different images must not share a cache entry, got %d calls", mock.CallCount())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mock := NewMockProvider()
	for i := 0; i < 4; i++ {
		mock.AddResponse(MockResponse{Content: json.RawMessage(`"x"`)})
	}
	cached := WithCache(mock, 2).(*CacheProvider)

	_, _ = cached.Generate(context.Background(), textRequest("one"))
	_, _ = cached.Generate(context.Background(), textRequest("two"))
	_, _ = cached.Generate(context.Background(), textRequest("three")) // evicts "one"

	if cached.Len() != 2 {
		t.Fatalf("expected capacity 2, got %d", cached.Len())
	}

	_, _ = cached.Generate(context.Background(), textRequest("one")) // miss again
	if mock.CallCount() != 4 {
		t.Errorf("expected evicted entry to miss, got %d calls", mock.CallCount())
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: fmt.Errorf("boom")}},
		MockResponse{Content: json.RawMessage(`"recovered"`)},
	)
	cached := WithCache(mock, 8)

	if _, err := cached.Generate(context.Background(), textRequest("p")); err == nil {
		t.Fatal("expected first call to fail")
	}
	resp, err := cached.Generate(context.Background(), textRequest("p"))
	if err != nil {
		t.Fatalf("second call should reach the provider: %v", err)
	}
	if string(resp.Content) != `"recovered"` {
		t.Errorf("unexpected content %s", resp.Content)
	}
}

func TestCache_ZeroCapacityDisables(t *testing.T) {
	mock := NewMockProvider()
	if p := WithCache(mock, 0); p != Provider(mock) {
		t.Error("capacity 0 should return the provider unwrapped")
	}
}
