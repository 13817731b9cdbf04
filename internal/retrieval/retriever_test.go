package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/catalog"
	"github.com/hyperjump/mitate/internal/models"
	"github.com/hyperjump/mitate/internal/vector"
)

type fakeEncoder struct {
	textVec  []float32
	imageVec []float32
	textErr  error
	imageErr error
	hasImage bool
}

func (f *fakeEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return f.textVec, f.textErr
}

func (f *fakeEncoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	return f.imageVec, f.imageErr
}

func (f *fakeEncoder) HasImageEncoder() bool {
	return f.hasImage
}

// buildIndex stores one vector per (id, similarity) pair such that a [1, 0]
// query produces exactly that raw inner product.
func buildIndex(t *testing.T, sims map[string]float64) vector.Index {
	t.Helper()
	idx, err := vector.NewMemoryIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	var vecs [][]float32
	for id, sim := range sims {
		ids = append(ids, id)
		vecs = append(vecs, []float32{float32(sim), 0})
	}
	if err := idx.Add(context.Background(), ids, vecs); err != nil {
		t.Fatal(err)
	}
	return idx
}

func testCatalog(ids ...string) *catalog.Catalog {
	products := make([]*models.Product, len(ids))
	for i, id := range ids {
		products[i] = &models.Product{ID: id, Name: "Item " + id}
	}
	return catalog.NewCatalog(products)
}

func TestRetrieveRescalesAndRanks(t *testing.T) {
	idx := buildIndex(t, map[string]float64{
		"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.1, "e": -0.2,
	})
	enc := &fakeEncoder{textVec: []float32{1, 0}}
	r := New(enc, idx, nil, testCatalog("a", "b", "c", "d", "e"), Config{}, zap.NewNop())

	res, err := r.Retrieve(context.Background(), &models.SearchQuery{Text: "shirt"}, 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Partial {
		t.Error("text-only query should not be partial")
	}
	if len(res.Text) != 3 {
		t.Fatalf("len(Text) = %d, want 3", len(res.Text))
	}
	wantScores := []float64{0.95, 0.90, 0.85}
	wantIDs := []string{"a", "b", "c"}
	for i := range wantScores {
		if res.Text[i].ID != wantIDs[i] {
			t.Errorf("Text[%d].ID = %s, want %s", i, res.Text[i].ID, wantIDs[i])
		}
		if math.Abs(res.Text[i].Score-wantScores[i]) > 1e-6 {
			t.Errorf("Text[%d].Score = %v, want %v", i, res.Text[i].Score, wantScores[i])
		}
		if res.Text[i].Product == nil {
			t.Errorf("Text[%d] missing product", i)
		}
		if res.Text[i].Modality != models.ModalityText {
			t.Errorf("Text[%d].Modality = %s", i, res.Text[i].Modality)
		}
	}
}

func TestRetrieveNoModality(t *testing.T) {
	idx := buildIndex(t, map[string]float64{"a": 0.5})
	r := New(&fakeEncoder{}, idx, nil, testCatalog("a"), Config{}, zap.NewNop())

	_, err := r.Retrieve(context.Background(), &models.SearchQuery{}, 3)
	if !errors.Is(err, models.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestRetrieveImageUnavailableDegrades(t *testing.T) {
	idx := buildIndex(t, map[string]float64{"a": 0.5})
	enc := &fakeEncoder{textVec: []float32{1, 0}, hasImage: false}
	r := New(enc, idx, nil, testCatalog("a"), Config{}, zap.NewNop())

	res, err := r.Retrieve(context.Background(), &models.SearchQuery{
		Text: "shirt", Image: []byte{1, 2, 3},
	}, 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !res.Partial {
		t.Error("Partial should be set when image modality degrades")
	}
	if len(res.Image) != 0 {
		t.Errorf("Image candidates = %d, want 0", len(res.Image))
	}
	if len(res.Text) == 0 {
		t.Error("text candidates should still be returned")
	}
}

func TestRetrieveImageOnlyUnavailableFails(t *testing.T) {
	idx := buildIndex(t, map[string]float64{"a": 0.5})
	r := New(&fakeEncoder{}, idx, nil, testCatalog("a"), Config{}, zap.NewNop())

	_, err := r.Retrieve(context.Background(), &models.SearchQuery{Image: []byte{1}}, 3)
	if !errors.Is(err, models.ErrIndexUnavailable) {
		t.Errorf("err = %v, want ErrIndexUnavailable", err)
	}
}

func TestRetrieveMultimodalOverfetch(t *testing.T) {
	sims := map[string]float64{}
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, id := range ids {
		sims[id] = 0.9 - float64(i)*0.1
	}
	textIdx := buildIndex(t, sims)
	imageIdx := buildIndex(t, sims)
	enc := &fakeEncoder{textVec: []float32{1, 0}, imageVec: []float32{1, 0}, hasImage: true}
	r := New(enc, textIdx, imageIdx, testCatalog(ids...), Config{FetchMultiplier: 3}, zap.NewNop())

	res, err := r.Retrieve(context.Background(), &models.SearchQuery{
		Text: "shirt", Image: []byte{1},
	}, 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// each modality over-fetches k * multiplier = 6
	if len(res.Text) != 6 {
		t.Errorf("len(Text) = %d, want 6", len(res.Text))
	}
	if len(res.Image) != 6 {
		t.Errorf("len(Image) = %d, want 6", len(res.Image))
	}
	if res.Image[0].Modality != models.ModalityImage {
		t.Errorf("Image[0].Modality = %s", res.Image[0].Modality)
	}
}

func TestRetrieveEncodingFailurePropagates(t *testing.T) {
	idx := buildIndex(t, map[string]float64{"a": 0.5})
	enc := &fakeEncoder{textErr: models.ErrEncodingFailure}
	r := New(enc, idx, nil, testCatalog("a"), Config{}, zap.NewNop())

	_, err := r.Retrieve(context.Background(), &models.SearchQuery{Text: "shirt"}, 3)
	if !errors.Is(err, models.ErrEncodingFailure) {
		t.Errorf("err = %v, want ErrEncodingFailure", err)
	}
}

func TestRetrieveMinScoreFilter(t *testing.T) {
	idx := buildIndex(t, map[string]float64{"hi": 0.8, "lo": -0.6})
	enc := &fakeEncoder{textVec: []float32{1, 0}}
	// rescaled: hi = 0.90, lo = 0.20
	r := New(enc, idx, nil, testCatalog("hi", "lo"), Config{MinScore: 0.5}, zap.NewNop())

	res, err := r.Retrieve(context.Background(), &models.SearchQuery{Text: "x"}, 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Text) != 1 || res.Text[0].ID != "hi" {
		t.Errorf("Text = %+v, want only hi", res.Text)
	}
}

func TestRetrieveDropsStaleIndexEntries(t *testing.T) {
	idx := buildIndex(t, map[string]float64{"known": 0.9, "ghost": 0.8})
	enc := &fakeEncoder{textVec: []float32{1, 0}}
	r := New(enc, idx, nil, testCatalog("known"), Config{}, zap.NewNop())

	res, err := r.Retrieve(context.Background(), &models.SearchQuery{Text: "x"}, 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Text) != 1 || res.Text[0].ID != "known" {
		t.Errorf("Text = %+v, want only known", res.Text)
	}
}
