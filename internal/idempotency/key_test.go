package idempotency

import "testing"

func TestKeyDeterministic(t *testing.T) {
	a := Key(1, "document_upload", map[string]string{"document_id": "42"})
	b := Key(1, "document_upload", map[string]string{"document_id": "42"})

	if a != b {
		t.Fatalf("Key must be deterministic, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("Key length = %d, want 64 hex chars", len(a))
	}
}

func TestKeyMetadataOrderIndependent(t *testing.T) {
	a := Key(1, "document_upload", map[string]string{"document_id": "42", "category": "passport"})
	b := Key(1, "document_upload", map[string]string{"category": "passport", "document_id": "42"})

	if a != b {
		t.Fatalf("Key must not depend on metadata iteration order")
	}
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key(1, "document_upload", map[string]string{"document_id": "42"})

	tests := []struct {
		name string
		key  string
	}{
		{
			name: "different user",
			key:  Key(2, "document_upload", map[string]string{"document_id": "42"}),
		},
		{
			name: "different action",
			key:  Key(1, "document_approved", map[string]string{"document_id": "42"}),
		},
		{
			name: "different metadata value",
			key:  Key(1, "document_upload", map[string]string{"document_id": "43"}),
		},
		{
			name: "extra metadata key",
			key:  Key(1, "document_upload", map[string]string{"document_id": "42", "page": "1"}),
		},
		{
			name: "empty metadata",
			key:  Key(1, "document_upload", nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Fatalf("key must differ from base")
			}
		})
	}
}

func TestKeySeparatorCollisions(t *testing.T) {
	// Склейка значений не должна давать одинаковую каноническую форму.
	a := Key(1, "a", map[string]string{"b": "c=d"})
	b := Key(1, "a", map[string]string{"b=c": "d"})

	if a == b {
		t.Fatalf("keys must differ for metadata with separator characters")
	}
}
