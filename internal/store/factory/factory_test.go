package factory

import (
	"testing"

	"github.com/loykin/hostbot/internal/store"
)

func TestFactorySelection(t *testing.T) {
	st, err := New(store.Config{})
	if err != nil || st != nil {
		t.Fatalf("empty type = (%v, %v), want (nil, nil)", st, err)
	}

	st, err = New(store.Config{Type: "sqlite", Path: ":memory:"})
	if err != nil || st == nil {
		t.Fatalf("sqlite = (%v, %v)", st, err)
	}
	_ = st.Close()

	if _, err := New(store.Config{Type: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
