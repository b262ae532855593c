package snapshot

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/id"
)

func goldenSnapshot(t *testing.T) *board.Snapshot {
	t.Helper()
	snap, err := board.Normalize(board.Seed{
		Buckets: []domain.Bucket{
			{ID: "col_2", Position: 7},
			{ID: "col_1", Position: 3, Payload: json.RawMessage(`{"label":"Lead","color":"bg-blue-500"}`)},
		},
		Items: []domain.Item{
			{ID: "c1", BucketID: "col_1", Order: 5, Payload: json.RawMessage(`{"order_hint": 1.50, "name": "Ana"}`)},
			{ID: "c3", BucketID: "col_2", Order: 0},
			{ID: "c2", BucketID: "col_1", Order: 2, Payload: json.RawMessage(`{"phone":"5511888888888", "name":"Bruno <vip>"}`)},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return snap
}

func TestCanonicalJSONGolden(t *testing.T) {
	data, err := CanonicalJSON(goldenSnapshot(t))
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "canonical", data)
}

func TestRevIsStable(t *testing.T) {
	a, err := CanonicalJSON(goldenSnapshot(t))
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	b, _ := CanonicalJSON(goldenSnapshot(t))

	rev := Rev(a)
	if rev != Rev(b) {
		t.Fatal("rev differs for identical boards")
	}
	if !strings.HasPrefix(rev, "sha256:") || len(rev) != len("sha256:")+64 {
		t.Errorf("unexpected rev format: %s", rev)
	}
	if Rev(append(a, ' ')) == rev {
		t.Error("rev should change with content")
	}
}

func TestDecodeBothShapes(t *testing.T) {
	doc := `{
		"columns": [
			{"id": "col_1", "label": "Lead", "color": "bg-blue-500", "ordem": 0},
			{"id": "col_2", "label": "Em contato", "color": "bg-orange-500", "ordem": 1}
		],
		"clients": [
			{"id": "1", "nome_cliente": "João Silva", "telefone": "5511999999999", "status": "col_1", "ordem": 0},
			{"id": "2", "name": "Maria Oliveira", "phone": "5511888888888", "columnId": "col_2", "order": 0},
			{"nome_cliente": "Sem Id", "status": "col_2", "ordem": 1}
		]
	}`
	seed, err := Decode(strings.NewReader(doc), id.Sequential())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	snap, err := board.Normalize(seed)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	want := map[string][]string{"col_1": {"1"}, "col_2": {"2", "item-1"}}
	got := map[string][]string{"col_1": snap.ItemIDs("col_1"), "col_2": snap.ItemIDs("col_2")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}

	joao, _ := snap.Item("1")
	var payload map[string]interface{}
	if err := json.Unmarshal(joao.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["name"] != "João Silva" || payload["phone"] != "5511999999999" {
		t.Errorf("payload not normalized to one shape: %v", payload)
	}
	if _, ok := payload["nome_cliente"]; ok {
		t.Error("portuguese field leaked into payload")
	}
}

// labeledSnapshot is a board as the CLI builds it: every record carries a
// payload that passes the adapter.
func labeledSnapshot(t *testing.T) *board.Snapshot {
	t.Helper()
	snap, err := board.Normalize(board.Seed{
		Buckets: []domain.Bucket{
			{ID: "col_2", Position: 1, Payload: json.RawMessage(`{"label":"Em contato"}`)},
			{ID: "col_1", Position: 0, Payload: json.RawMessage(`{"label":"Lead","color":"bg-blue-500"}`)},
		},
		Items: []domain.Item{
			{ID: "c1", BucketID: "col_1", Order: 0, Payload: json.RawMessage(`{"name":"Ana","phone":"5511999999999"}`)},
			{ID: "c3", BucketID: "col_2", Order: 0, Payload: json.RawMessage(`{"name":"Carla"}`)},
			{ID: "c2", BucketID: "col_1", Order: 1, Payload: json.RawMessage(`{"name":"Bruno <vip>"}`)},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return snap
}

func TestDecodeCanonicalRoundTrip(t *testing.T) {
	original, err := CanonicalJSON(labeledSnapshot(t))
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}

	seed, err := Decode(strings.NewReader(string(original)), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	snap, err := board.Normalize(seed)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	again, err := CanonicalJSON(snap)
	if err != nil {
		t.Fatalf("canonical again: %v", err)
	}
	if diff := cmp.Diff(string(original), string(again)); diff != "" {
		t.Fatalf("round trip changed output (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsInvalidRecords(t *testing.T) {
	cases := map[string]string{
		"client without name":              `{"buckets":[{"id":"X","label":"X"}],"items":[{"id":"a","columnId":"X"}]}`,
		"column without label":             `{"buckets":[{"id":"X","color":"bg-white"}]}`,
		"canonical bad payload":            `{"buckets":[{"id":"X","position":0,"payload":{"label":"X"}}],"items":[{"id":"a","bucket_id":"X","order":0,"payload":{"phone":"1"}}]}`,
		"canonical bucket without payload": `{"buckets":[{"id":"X","position":0}]}`,
		"canonical item without payload":   `{"buckets":[{"id":"X","position":0,"payload":{"label":"X"}}],"items":[{"id":"a","bucket_id":"X","order":0}]}`,
		"canonical bucket without label":   `{"buckets":[{"id":"X","position":0,"payload":{"color":"bg-white"}}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc), nil)
			var vf *domain.ValidationFailure
			if !errors.As(err, &vf) {
				t.Fatalf("expected validation failure, got %v", err)
			}
		})
	}

	if _, err := Decode(strings.NewReader(`{"buckets": [`), nil); err == nil {
		t.Error("expected syntax error")
	}
}
