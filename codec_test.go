package keel

import "testing"

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := JSONCodec{}
	snapshot := map[string]any{
		"name": "ada",
		"tags": []any{"admin", "ops"},
	}

	data, err := codec.Marshal(snapshot)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var restored any
	if err := codec.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if v, _ := Get(restored, ParsePath("name")); v != "ada" {
		t.Errorf("expected 'ada', got %v", v)
	}
	if v, _ := Get(restored, ParsePath("tags.1")); v != "ops" {
		t.Errorf("expected 'ops', got %v", v)
	}
}

func TestYAMLCodec_Unmarshal(t *testing.T) {
	codec := YAMLCodec{}

	var restored any
	if err := codec.Unmarshal([]byte("name: ada\ncount: 2"), &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v, _ := Get(restored, ParsePath("name")); v != "ada" {
		t.Errorf("expected 'ada', got %v", v)
	}
}

func TestCodec_ContentTypes(t *testing.T) {
	if got := (JSONCodec{}).ContentType(); got != "application/json" {
		t.Errorf("unexpected JSON content type %q", got)
	}
	if got := (YAMLCodec{}).ContentType(); got != "application/x-yaml" {
		t.Errorf("unexpected YAML content type %q", got)
	}
}
