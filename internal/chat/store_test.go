package chat

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/scopium-app/scopium/internal/domain"
)

func repoFixture(id int64) domain.Repository {
	return domain.Repository{
		ID:       id,
		FullName: fmt.Sprintf("octo/demo-%d", id),
		CloneURL: fmt.Sprintf("https://github.com/octo/demo-%d.git", id),
	}
}

func userMsg(text string) domain.Message {
	return domain.Message{ID: text + "-id", Text: text, Sender: domain.SenderUser}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	s := NewStore()
	repo := repoFixture(1)

	s.GetOrCreate(repo)
	if err := s.Append(repo.ID, userMsg("hello")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Reselecting must not produce a fresh empty conversation.
	s.GetOrCreate(repo)
	s.GetOrCreate(repo)

	msgs, err := s.ConversationOf(repo.ID)
	if err != nil {
		t.Fatalf("ConversationOf: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Errorf("Expected existing conversation preserved, got %+v", msgs)
	}
}

func TestAppendUnknownRepository(t *testing.T) {
	s := NewStore()
	if err := s.Append(99, userMsg("hi")); !errors.Is(err, domain.ErrUnknownRepository) {
		t.Errorf("Expected ErrUnknownRepository, got %v", err)
	}
	if _, err := s.ConversationOf(99); !errors.Is(err, domain.ErrUnknownRepository) {
		t.Errorf("Expected ErrUnknownRepository, got %v", err)
	}
}

func TestConversationOfEmpty(t *testing.T) {
	s := NewStore()
	s.GetOrCreate(repoFixture(1))

	msgs, err := s.ConversationOf(1)
	if err != nil {
		t.Fatalf("ConversationOf: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected empty conversation, got %d messages", len(msgs))
	}
}

func TestConversationSnapshotIsolated(t *testing.T) {
	s := NewStore()
	repo := repoFixture(1)
	s.GetOrCreate(repo)
	_ = s.Append(repo.ID, userMsg("one"))

	snapshot, _ := s.ConversationOf(repo.ID)
	_ = s.Append(repo.ID, userMsg("two"))

	if len(snapshot) != 1 {
		t.Errorf("Snapshot mutated by later append: %d messages", len(snapshot))
	}
}

func TestHistoryOrderAndDeduplication(t *testing.T) {
	s := NewStore()
	a, b := repoFixture(1), repoFixture(2)
	s.GetOrCreate(a)
	s.GetOrCreate(b)

	s.RecordHistory(b)
	s.RecordHistory(a)
	s.RecordHistory(b)
	s.RecordHistory(a)

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].ID != b.ID || history[1].ID != a.ID {
		t.Errorf("Expected first-added order [2 1], got [%d %d]", history[0].ID, history[1].ID)
	}
}

func TestAppendOrderPreserved(t *testing.T) {
	s := NewStore()
	repo := repoFixture(1)
	s.GetOrCreate(repo)

	for i := 0; i < 20; i++ {
		if err := s.Append(repo.ID, userMsg(fmt.Sprintf("m%02d", i))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	msgs, _ := s.ConversationOf(repo.ID)
	for i, m := range msgs {
		if want := fmt.Sprintf("m%02d", i); m.Text != want {
			t.Fatalf("Position %d: expected %q, got %q", i, want, m.Text)
		}
	}
}

func TestConcurrentWritesToSameRepository(t *testing.T) {
	s := NewStore()
	repo := repoFixture(1)
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.GetOrCreate(repo)
				s.RecordHistory(repo)
				if err := s.Append(repo.ID, userMsg(fmt.Sprintf("w%d-m%03d", w, i))); err != nil {
					t.Errorf("Append worker %d: %v", w, err)
					return
				}
				if _, err := s.ConversationOf(repo.ID); err != nil {
					t.Errorf("ConversationOf worker %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	msgs, err := s.ConversationOf(repo.ID)
	if err != nil {
		t.Fatalf("ConversationOf: %v", err)
	}
	if len(msgs) != workers*perWorker {
		t.Errorf("Expected %d messages, got %d", workers*perWorker, len(msgs))
	}
	if history := s.History(); len(history) != 1 {
		t.Errorf("Expected a single history entry, got %d", len(history))
	}
}

func TestConcurrentAppendsAcrossRepositories(t *testing.T) {
	s := NewStore()
	const repos = 8
	const perRepo = 50

	for id := int64(1); id <= repos; id++ {
		s.GetOrCreate(repoFixture(id))
	}

	var wg sync.WaitGroup
	for id := int64(1); id <= repos; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < perRepo; i++ {
				if err := s.Append(id, userMsg(fmt.Sprintf("r%d-m%03d", id, i))); err != nil {
					t.Errorf("Append repo %d: %v", id, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for id := int64(1); id <= repos; id++ {
		msgs, err := s.ConversationOf(id)
		if err != nil {
			t.Fatalf("ConversationOf %d: %v", id, err)
		}
		if len(msgs) != perRepo {
			t.Errorf("Repo %d: expected %d messages, got %d", id, perRepo, len(msgs))
		}
		for i, m := range msgs {
			if want := fmt.Sprintf("r%d-m%03d", id, i); m.Text != want {
				t.Fatalf("Repo %d position %d: expected %q, got %q", id, i, want, m.Text)
			}
		}
	}
}
