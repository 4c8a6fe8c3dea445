// Package index implements an in-memory semantic-search index over
// documents embedded by the semantic encoder, with cosine top-K search
// and JSON sidecar persistence. Grounded on
// original_source/ml/integration/cloud_ml.py (CloudMLSearch: add_document,
// remove_document, search, find_similar, save_index/load_index).
package index

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/kerrors"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/model/encoder"
	"github.com/rd8r8bkd9m-tech/kolibri-project/pkg/tokenize"
)

const previewLen = 200

// Document is one indexed item.
type Document struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is one ranked search result.
type Match struct {
	DocID   string
	Score   float32
	Preview string
}

// Index is an in-memory document/embedding store over a semantic encoder.
// An internal RWMutex serializes mutations (Add, Remove, Load) against each
// other and against reads (Search, FindSimilar, Save, Stats).
type Index struct {
	mu         sync.RWMutex
	encoderM   *encoder.Model
	documents  map[string]Document
	embeddings map[string][]float32
}

// New returns an empty Index backed by enc for embedding new documents.
func New(enc *encoder.Model) *Index {
	return &Index{
		encoderM:   enc,
		documents:  make(map[string]Document),
		embeddings: make(map[string][]float32),
	}
}

func (idx *Index) embed(text string) []float32 {
	ids := tokenize.Encode(text, idx.encoderM.Config.Vocab, idx.encoderM.Config.MaxSeq)
	out := idx.encoderM.Encode([][]int{ids})
	return append([]float32(nil), out.Data...)
}

// Add embeds doc.Content and stores it under docID, replacing any existing
// entry with the same id.
func (idx *Index) Add(docID string, doc Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.documents[docID] = doc
	idx.embeddings[docID] = idx.embed(doc.Content)
}

// Remove deletes docID from the index, if present.
func (idx *Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.documents, docID)
	delete(idx.embeddings, docID)
}

// Search embeds query, scores it against every stored document by cosine
// similarity (ε=1e-8 in the denominator), filters by minScore, sorts
// descending, and truncates to k. Preview is the first 200 chars of the
// document's content, with an ellipsis if truncated.
func (idx *Index) Search(query string, k int, minScore float32) []Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	q := idx.embed(query)
	return idx.rank(q, "", k, minScore)
}

// FindSimilar finds the K nearest other documents to docID, excluding it.
func (idx *Index) FindSimilar(docID string, k int) []Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	q, ok := idx.embeddings[docID]
	if !ok {
		return nil
	}
	return idx.rank(q, docID, k, 0)
}

func (idx *Index) rank(query []float32, exclude string, k int, minScore float32) []Match {
	var matches []Match
	for id, emb := range idx.embeddings {
		if id == exclude {
			continue
		}
		score := cosine(query, emb)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{DocID: id, Score: score, Preview: preview(idx.documents[id].Content)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLen {
		return content
	}
	return string(r[:previewLen]) + "..."
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	const eps = 1e-8
	return dot / (float32(math.Sqrt(float64(na)))*float32(math.Sqrt(float64(nb))) + eps)
}

// Save writes documents.json and embeddings.json under dir.
func (idx *Index) Save(dir string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kerrors.NewIOError(dir, err)
	}

	docsJSON, err := json.MarshalIndent(idx.documents, "", "  ")
	if err != nil {
		return err
	}
	docsPath := filepath.Join(dir, "documents.json")
	if err := os.WriteFile(docsPath, docsJSON, 0o644); err != nil {
		return kerrors.NewIOError(docsPath, err)
	}

	embJSON, err := json.MarshalIndent(idx.embeddings, "", "  ")
	if err != nil {
		return err
	}
	embPath := filepath.Join(dir, "embeddings.json")
	if err := os.WriteFile(embPath, embJSON, 0o644); err != nil {
		return kerrors.NewIOError(embPath, err)
	}
	return nil
}

// Load reads documents.json and embeddings.json from dir, replacing the
// index's contents. This always invalidates any previously built vector
// index — since this Index never caches a separate ANN structure, that
// holds trivially (reads always scan the live map).
func (idx *Index) Load(dir string) error {
	docsPath := filepath.Join(dir, "documents.json")
	docsJSON, err := os.ReadFile(docsPath)
	if err != nil {
		return kerrors.NewIOError(docsPath, err)
	}
	embPath := filepath.Join(dir, "embeddings.json")
	embJSON, err := os.ReadFile(embPath)
	if err != nil {
		return kerrors.NewIOError(embPath, err)
	}

	var docs map[string]Document
	if err := json.Unmarshal(docsJSON, &docs); err != nil {
		return err
	}
	var embeddings map[string][]float32
	if err := json.Unmarshal(embJSON, &embeddings); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.documents = docs
	idx.embeddings = embeddings
	return nil
}

// Stats reports index size, for diagnostics.
func (idx *Index) Stats() (docCount, embeddingCount int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.documents), len(idx.embeddings)
}
