package search

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/khanglvm/ifs-cloud-mcp/internal/analysis"
	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(text string) []float32
	Dimensions() int
	Model() string
}

// DefaultDimensions is the vector size of the hashing embedder.
const DefaultDimensions = 256

// HashingEmbedder embeds text by feature hashing word tokens and character
// trigrams into a fixed number of signed buckets.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder returns an embedder with dims buckets (DefaultDimensions
// when dims <= 0).
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Dimensions returns the vector size.
func (h *HashingEmbedder) Dimensions() int { return h.dims }

// Model names the embedding scheme; vectors from other models are not comparable.
func (h *HashingEmbedder) Model() string {
	return fmt.Sprintf("hashing-v1-%d", h.dims)
}

// Embed returns the L2-normalised feature vector of text. Empty text yields
// a zero vector.
func (h *HashingEmbedder) Embed(text string) []float32 {
	vec := make([]float32, h.dims)

	for _, tok := range Tokenize(text) {
		h.add(vec, "w:"+tok, 1)
		if len(tok) < 3 {
			continue
		}
		padded := "#" + tok + "#"
		for i := 0; i+3 <= len(padded); i++ {
			h.add(vec, "t:"+padded[i:i+3], 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (h *HashingEmbedder) add(vec []float32, feature string, weight float32) {
	f := fnv.New32a()
	f.Write([]byte(feature))
	sum := f.Sum32()

	bucket := int(sum % uint32(h.dims))
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

// Tokenize lowercases text into word tokens, splitting identifiers on
// underscores and camel-case boundaries.
func Tokenize(text string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	var prev rune
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if len(cur) > 0 && unicode.IsLower(prev) && unicode.IsUpper(r) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()
	return tokens
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// VectorIndex is a flat, exact cosine-similarity index held in memory.
type VectorIndex struct {
	mu      sync.RWMutex
	model   string
	paths   []string
	vectors [][]float32
}

// NewVectorIndex creates an empty index for vectors of the given model.
func NewVectorIndex(model string) *VectorIndex {
	return &VectorIndex{model: model}
}

// LoadVectorIndex reads every vector of model from the catalog. A catalog
// holding only vectors of another model yields ErrIndexNotBuilt.
func LoadVectorIndex(store *storage.SQLiteStorage, model string) (*VectorIndex, error) {
	embeddings, mismatched, err := store.LoadEmbeddings(model)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	if len(embeddings) == 0 && mismatched > 0 {
		return nil, fmt.Errorf("%w: vectors were built with a different embedding model", ErrIndexNotBuilt)
	}

	idx := NewVectorIndex(model)
	for _, e := range embeddings {
		idx.Add(e.Path, e.Vector)
	}
	return idx, nil
}

// Add appends a vector.
func (v *VectorIndex) Add(path string, vector []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.paths = append(v.paths, path)
	v.vectors = append(v.vectors, vector)
}

// Len returns the number of vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.paths)
}

// Model returns the embedding model of the stored vectors.
func (v *VectorIndex) Model() string { return v.model }

// Search returns the k most similar entries passing filters, best first,
// ties broken by path. Entries with non-positive similarity are dropped.
func (v *VectorIndex) Search(query []float32, k int, filters Filters) []SearchResult {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if k <= 0 {
		k = 10
	}
	filters = filters.normalized()

	var results []SearchResult
	for i, vec := range v.vectors {
		path := v.paths[i]
		fileType := analysis.TypeOf(path)
		component := analysis.ComponentOf(path)
		if !filters.match(fileType, component) {
			continue
		}

		sim := cosineSimilarity(query, vec)
		if sim <= 0 {
			continue
		}
		results = append(results, SearchResult{
			Path:      path,
			Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Type:      fileType,
			Component: component,
			Score:     sim,
		})
	}

	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// VectorMeta describes the vector index written to the faiss/ directory.
type VectorMeta struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Count      int       `json:"count"`
	BuiltAt    time.Time `json:"built_at"`
}

const vectorMetaFile = "index.json"

// WriteVectorMeta writes index.json into dir.
func WriteVectorMeta(dir string, meta VectorMeta) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create vector directory: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, vectorMetaFile), data, 0644)
}

// ReadVectorMeta reads index.json from dir.
func ReadVectorMeta(dir string) (*VectorMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, vectorMetaFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexNotBuilt, err)
	}
	var meta VectorMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid vector index metadata: %w", err)
	}
	return &meta, nil
}

// sortResults orders by score descending, then path.
func sortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
}
