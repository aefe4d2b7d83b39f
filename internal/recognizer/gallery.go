package recognizer

import (
	"context"
	"sync"

	"github.com/coder/hnsw"

	"rollcall/internal/services"
	"rollcall/internal/store"
	"rollcall/internal/vision"
)

// hnswMaxNeighbors is the graph connectivity parameter (M).
const hnswMaxNeighbors = 16

// Gallery resolves crops against the registered face database. It embeds the
// crop, then searches an HNSW graph built from every stored embedding and
// returns the closest person.
//
// The graph is rebuilt lazily: Invalidate marks it stale (wired to the
// store's change listener so person deletion drops the cached index), and
// the next Identify rebuilds it from the store.
type Gallery struct {
	embedder  Embedder
	st        *store.Store
	neighbors int

	mu       sync.RWMutex
	graph    *hnsw.Graph[int64]
	idPerson map[int64]string
	stale    bool
}

// NewGallery builds a gallery over the store's embeddings. The returned
// gallery registers itself for invalidation on store changes.
func NewGallery(st *store.Store, embedder Embedder, neighbors int) *Gallery {
	if neighbors < 1 {
		neighbors = 1
	}
	g := &Gallery{
		embedder:  embedder,
		st:        st,
		neighbors: neighbors,
		stale:     true,
	}
	st.AddChangeListener(g.Invalidate)
	return g
}

// Invalidate marks the cached index stale; the next Identify rebuilds it.
func (g *Gallery) Invalidate() {
	g.mu.Lock()
	g.stale = true
	g.mu.Unlock()
}

// Rebuild loads all embeddings and reconstructs the HNSW graph.
func (g *Gallery) Rebuild(ctx context.Context) error {
	embeddings, err := g.st.AllEmbeddings(ctx)
	if err != nil {
		return services.Wrap(services.ErrRecognizer, "gallery", "rebuild", "load embeddings", err)
	}

	graph := hnsw.NewGraph[int64]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors)
	graph.Distance = hnsw.CosineDistance

	idPerson := make(map[int64]string, len(embeddings))
	for _, emb := range embeddings {
		if len(emb.Vector) == 0 {
			continue
		}
		graph.Add(hnsw.MakeNode(emb.ID, emb.Vector))
		idPerson[emb.ID] = emb.PersonID
	}

	g.mu.Lock()
	g.graph = graph
	g.idPerson = idPerson
	g.stale = false
	g.mu.Unlock()
	return nil
}

// Identify embeds the crop and returns the nearest registered person. An
// empty gallery or a crop without an extractable face yields a recognizer
// error, which the pipeline absorbs as transient.
func (g *Gallery) Identify(ctx context.Context, crop vision.Crop) (Match, error) {
	if err := g.ensureFresh(ctx); err != nil {
		return Match{}, err
	}

	vector, err := g.embedder.Embed(ctx, crop)
	if err != nil {
		return Match{}, services.Wrap(services.ErrRecognizer, "gallery", "embed", "", err)
	}
	if ctx.Err() != nil {
		return Match{}, services.Wrap(services.ErrTimeout, "gallery", "identify", "", ctx.Err())
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.graph == nil || g.graph.Len() == 0 {
		return Match{}, services.Wrap(services.ErrRecognizer, "gallery", "identify", "gallery is empty", nil)
	}

	nodes := g.graph.Search(vector, g.neighbors)
	if len(nodes) == 0 {
		return Match{}, services.Wrap(services.ErrRecognizer, "gallery", "identify", "no neighbors", nil)
	}

	// Exact distance against the stored vector; the graph search ordering is
	// approximate.
	best := nodes[0]
	bestDistance := CosineDistance(vector, best.Value)
	for _, node := range nodes[1:] {
		if d := CosineDistance(vector, node.Value); d < bestDistance {
			best = node
			bestDistance = d
		}
	}

	personID, ok := g.idPerson[best.Key]
	if !ok {
		return Match{}, services.Wrap(services.ErrRecognizer, "gallery", "identify", "stale index entry", nil)
	}
	return Match{PersonID: personID, Distance: bestDistance}, nil
}

func (g *Gallery) ensureFresh(ctx context.Context) error {
	g.mu.RLock()
	stale := g.stale
	g.mu.RUnlock()
	if !stale {
		return nil
	}
	return g.Rebuild(ctx)
}
