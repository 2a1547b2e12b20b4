package csvdoc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWriteQueueCoalescesPendingJobs(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	record := func(label string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			ran = append(ran, label)
			mu.Unlock()
			return nil
		}
	}

	release := make(chan struct{})
	started := make(chan struct{})
	q := newWriteQueue(nil)
	q.Enqueue(writeJob{key: "block", run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started

	q.Enqueue(writeJob{key: "schema", run: record("schema-1")})
	q.Enqueue(writeJob{key: "document", run: record("document-1")})
	q.Enqueue(writeJob{key: "schema", run: record("schema-2")})
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []string{"schema-2", "document-1"}
	if len(ran) != len(want) || ran[0] != want[0] || ran[1] != want[1] {
		t.Fatalf("want %v got %v", want, ran)
	}
}

func TestWriteQueueReportsErrorsAndCloses(t *testing.T) {
	boom := errors.New("disk full")
	var mu sync.Mutex
	var failures []string
	q := newWriteQueue(func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if errors.Is(err, boom) {
			failures = append(failures, key)
		}
	})
	q.Enqueue(writeJob{key: "schema", run: func(context.Context) error { return boom }})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if q.Enqueue(writeJob{key: "late", run: func(context.Context) error { return nil }}) {
		t.Fatalf("closed queue must reject jobs")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 || failures[0] != "schema" {
		t.Fatalf("expected schema failure to be reported, got %v", failures)
	}
}

func TestWriteQueueWaitGivesUpOnHungJob(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := newWriteQueue(nil)
	q.Enqueue(writeJob{key: "document", run: func(context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- q.Wait(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return after its context expired")
	}
}
