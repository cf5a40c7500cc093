// Package merge implements the topic merger's LLM-backed consolidation
// pass and cluster-reparenting application (C7). Deterministic
// normalization and similarity live in internal/topic.
package merge

import (
	"context"
	"sort"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/embed"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/llm"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/telemetry"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/topic"
	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// llmTopicCap is the "up to 50 surviving canonical topics" ceiling spec
// §4.7 puts on the LLM consolidation pass, applied after rule-based
// grouping has already folded together anything topic.Similar catches.
const llmTopicCap = 50

// AbsorptionThreshold is the cosine similarity above which a singleton
// cluster is folded into a larger one (spec §4.7).
const AbsorptionThreshold = 0.85

// Store is the subset of sqlite.Store the merge phase depends on.
type Store interface {
	DistinctCanonicalTopics(ctx context.Context) ([]string, error)
	RenameTopic(ctx context.Context, from, to string) error
	ClustersByTopic(ctx context.Context, topic string) ([]types.PainCluster, error)
	MergeClusterInto(ctx context.Context, fromClusterID, toClusterID int64) error
	AllClusters(ctx context.Context) ([]types.PainCluster, error)
	GetEmbedding(ctx context.Context, id int64) (types.Embedding, error)
}

// Phase runs the every-6th-cron topic consolidation pass.
type Phase struct {
	store     Store
	llmClient *llm.Client
}

// New builds a merge Phase.
func New(store Store, llmClient *llm.Client) *Phase {
	return &Phase{store: store, llmClient: llmClient}
}

// Run folds topics via the deterministic rule-based grouping pass first,
// then submits up to llmTopicCap surviving canonical topics to the LLM
// consolidation pass, applies the resulting {from,to} merges (dropping
// self-merges and any 2-cycle), and finally runs the centroid-embedding
// absorption pass over singleton clusters (spec §4.7).
func (p *Phase) Run(ctx context.Context) (merged int, err error) {
	metrics := telemetry.Phase()
	log := telemetry.Logger()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.merge")
	defer span.End()
	metrics.PhaseRuns.Add(ctx, 1)
	log.Info("merge: starting")

	topics, err := p.store.DistinctCanonicalTopics(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("merge: load distinct canonical topics", "error", err)
		return 0, err
	}

	survivors, ruleMerges := groupSimilarTopics(topics)
	log.Info("merge: rule-based grouping", "topics", len(topics), "survivors", len(survivors), "grouped", len(ruleMerges))

	for _, m := range ruleMerges {
		if err := p.applyMerge(ctx, m.From, m.To); err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("merge: apply rule-based merge failed, skipping pair", "from", m.From, "to", m.To, "error", err)
			continue
		}
		merged++
	}

	llmTopics := survivors
	if len(llmTopics) > llmTopicCap {
		log.Info("merge: capping topics sent to LLM pass", "surviving", len(llmTopics), "cap", llmTopicCap)
		llmTopics = llmTopics[:llmTopicCap]
	}

	plan, err := p.llmClient.ProposeMerges(ctx, llmTopics)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("merge: LLM consolidation pass", "error", err)
		return merged, err
	}

	for _, m := range dropCycles(plan.Merges) {
		if err := p.applyMerge(ctx, m.From, m.To); err != nil {
			metrics.PhaseErrors.Add(ctx, 1)
			log.Warn("merge: apply LLM merge failed, skipping pair", "from", m.From, "to", m.To, "error", err)
			continue
		}
		merged++
	}

	absorbed, err := p.absorbSingletons(ctx)
	if err != nil {
		metrics.PhaseErrors.Add(ctx, 1)
		log.Error("merge: absorb singleton clusters", "error", err)
		return merged, err
	}
	log.Info("merge: done", "merged", merged+absorbed, "absorbed", absorbed)
	return merged + absorbed, nil
}

// groupSimilarTopics implements spec §4.7's rule-based grouping pass: every
// pair of topics that topic.Similar matches is folded into one group via
// union-find, and the lexicographically smallest member of each group
// becomes its survivor so the choice is deterministic across runs. Returns
// the sorted survivor list (what the LLM pass sees) and the {from,to}
// merges needed to fold every non-survivor into its group's survivor.
func groupSimilarTopics(topics []string) (survivors []string, merges []llm.TopicMerge) {
	sorted := append([]string(nil), topics...)
	sort.Strings(sorted)

	parent := make(map[string]string, len(sorted))
	for _, t := range sorted {
		parent[t] = t
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if topic.Similar(sorted[i], sorted[j]) {
				union(sorted[i], sorted[j])
			}
		}
	}

	groups := make(map[string][]string)
	for _, t := range sorted {
		root := find(t)
		groups[root] = append(groups[root], t)
	}

	survivors = make([]string, 0, len(groups))
	for root, members := range groups {
		survivors = append(survivors, root)
		for _, m := range members {
			if m != root {
				merges = append(merges, llm.TopicMerge{From: m, To: root})
			}
		}
	}
	sort.Strings(survivors)
	sort.Slice(merges, func(i, j int) bool { return merges[i].From < merges[j].From })
	return survivors, merges
}

// dropCycles removes both legs of any 2-cycle (a->b and b->a in the same
// plan) before merges are applied. A 2-cycle has no well-defined winner and
// applying it would reparent records back and forth with no settled state.
func dropCycles(merges []llm.TopicMerge) []llm.TopicMerge {
	seen := make(map[string]string, len(merges))
	for _, m := range merges {
		seen[m.From] = m.To
	}

	cyclic := make(map[string]bool)
	for from, to := range seen {
		if other, ok := seen[to]; ok && other == from {
			cyclic[from] = true
			cyclic[to] = true
		}
	}

	out := make([]llm.TopicMerge, 0, len(merges))
	for _, m := range merges {
		if m.From == m.To || cyclic[m.From] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// applyMerge implements spec §4.7 steps (a)-(c): retag pain records, then
// reparent any existing "from" cluster into an existing "to" cluster.
func (p *Phase) applyMerge(ctx context.Context, from, to string) error {
	if err := p.store.RenameTopic(ctx, from, to); err != nil {
		return err
	}

	fromClusters, err := p.store.ClustersByTopic(ctx, from)
	if err != nil {
		return err
	}
	toClusters, err := p.store.ClustersByTopic(ctx, to)
	if err != nil {
		return err
	}
	if len(fromClusters) == 0 || len(toClusters) == 0 {
		return nil
	}

	target := largestCluster(toClusters)
	for _, c := range fromClusters {
		if c.ID == target.ID {
			continue
		}
		if err := p.store.MergeClusterInto(ctx, c.ID, target.ID); err != nil {
			return err
		}
	}
	return nil
}

func largestCluster(clusters []types.PainCluster) types.PainCluster {
	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.MemberCount > best.MemberCount {
			best = c
		}
	}
	return best
}

// absorbSingletons folds every member_count==1 cluster whose centroid
// embedding is >0.85 cosine from some member_count>=2 cluster's centroid
// into that larger cluster.
func (p *Phase) absorbSingletons(ctx context.Context) (int, error) {
	clusters, err := p.store.AllClusters(ctx)
	if err != nil {
		return 0, err
	}

	var singles, large []types.PainCluster
	for _, c := range clusters {
		if c.MemberCount == 1 {
			singles = append(singles, c)
		} else if c.MemberCount >= 2 {
			large = append(large, c)
		}
	}
	if len(singles) == 0 || len(large) == 0 {
		return 0, nil
	}

	absorbed := 0
	for _, s := range singles {
		centroid, err := p.store.GetEmbedding(ctx, s.CentroidEmbeddingID)
		if err != nil {
			continue
		}
		bestScore := 0.0
		var bestTarget types.PainCluster
		found := false
		for _, l := range large {
			otherCentroid, err := p.store.GetEmbedding(ctx, l.CentroidEmbeddingID)
			if err != nil {
				continue
			}
			score := embed.CosineSimilarity(centroid.Vector, otherCentroid.Vector)
			if score > bestScore {
				bestScore, bestTarget, found = score, l, true
			}
		}
		if found && bestScore > AbsorptionThreshold {
			if err := p.store.MergeClusterInto(ctx, s.ID, bestTarget.ID); err != nil {
				continue
			}
			absorbed++
		}
	}
	return absorbed, nil
}
