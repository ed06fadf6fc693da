package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// maxSuggestions bounds the "did you mean" list.
const maxSuggestions = 3

// loadManifestByRef loads a run's manifest by full id or by a prefix
// matching exactly one stored run. An unknown reference fails with the
// store's not-found error, extended with close run ids when there are any.
func loadManifestByRef(ctx context.Context, st core.ArtifactStore, ref string) (string, []byte, error) {
	data, err := st.LoadManifest(ctx, ref)
	if err == nil || !core.IsCategory(err, core.ErrCatNotFound) {
		return ref, data, err
	}

	runs, listErr := st.ListRuns(ctx)
	if listErr != nil {
		return ref, nil, err
	}
	ids := make([]string, 0, len(runs))
	var prefixed []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
		if ref != "" && strings.HasPrefix(r.RunID, ref) {
			prefixed = append(prefixed, r.RunID)
		}
	}

	if len(prefixed) == 1 {
		data, loadErr := st.LoadManifest(ctx, prefixed[0])
		return prefixed[0], data, loadErr
	}
	if len(prefixed) > 1 {
		return ref, nil, fmt.Errorf("%w (ambiguous prefix matches %s)", err, strings.Join(truncate(prefixed), ", "))
	}
	if s := suggestRunIDs(ref, ids); len(s) > 0 {
		return ref, nil, fmt.Errorf("%w (did you mean %s?)", err, strings.Join(s, ", "))
	}
	return ref, nil, err
}

// suggestRunIDs returns the stored ids closest to ref, best match first.
func suggestRunIDs(ref string, ids []string) []string {
	if ref == "" {
		return nil
	}
	matches := fuzzy.Find(ref, ids)
	result := make([]string, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.Str)
	}
	return truncate(result)
}

func truncate(ids []string) []string {
	if len(ids) > maxSuggestions {
		return ids[:maxSuggestions]
	}
	return ids
}
