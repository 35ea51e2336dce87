package mine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astmerge/findmerges/merges"
	"github.com/astmerge/findmerges/vcs"
	_ "github.com/astmerge/findmerges/vcs/gitcmd"
	_ "github.com/astmerge/findmerges/vcs/gogit"
	vcstesting "github.com/astmerge/findmerges/vcs/testing"
)

// fakeAcquirer hands out in-memory repositories by slug.
type fakeAcquirer struct {
	mu    sync.Mutex
	repos map[Slug]vcs.Repository
	calls []Slug
}

func (a *fakeAcquirer) Acquire(ctx context.Context, s Slug, dir string) (vcs.Repository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, s)
	if r, ok := a.repos[s]; ok {
		return r, nil
	}
	return nil, errors.New("repository not found")
}

func sharedMerges() *vcstesting.Graph {
	return vcstesting.NewGraph().
		Commit("R").Commit("A", "R").Commit("C", "R").Commit("M1", "A", "C").
		Commit("B", "M1").Commit("D", "M1").Commit("M2", "B", "D").
		Branch("refs/heads/master", "M2").
		Branch("refs/heads/feature", "D")
}

func newRunner(t *testing.T, acq Acquirer) (*Runner, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return &Runner{
		OutputDir:  t.TempDir(),
		ScratchDir: t.TempDir(),
		Workers:    4,
		Cap:        merges.DefaultCap,
		Acquirer:   acq,
		Metrics:    NewMetrics(reg),
	}, reg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunner_Run(t *testing.T) {
	ok := Slug{"org", "ok"}
	missing := Slug{"org", "missing"}
	acq := &fakeAcquirer{repos: map[Slug]vcs.Repository{ok: sharedMerges()}}
	r, _ := newRunner(t, acq)

	require.NoError(t, r.Run(context.Background(), []Slug{ok, missing}))
	assert.NotEmpty(t, r.RunID)

	assert.Equal(t, strings.Join([]string{
		"idx,branch_name,merge_commit,parent_1,parent_2,notes",
		"1,refs/heads/feature,M1,A,C,",
		"2,refs/heads/master,M2,B,D,",
		"",
	}, "\n"), readFile(t, OutputPath(r.OutputDir, ok)))

	assert.Equal(t, "idx,branch_name,merge_commit,parent_1,parent_2,notes\n", readFile(t, OutputPath(r.OutputDir, missing)),
		"acquisition failure leaves a header-only file")
	assert.EqualValues(t, 2, r.Merges())

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Repos.WithLabelValues("mined")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Repos.WithLabelValues("acquire_failed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.Metrics.Merges))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.DuplicateMerges))
}

func TestRunner_Run_skipsExistingOutput(t *testing.T) {
	s := Slug{"org", "repo"}
	acq := &fakeAcquirer{repos: map[Slug]vcs.Repository{s: sharedMerges()}}
	r, _ := newRunner(t, acq)

	require.NoError(t, r.Run(context.Background(), []Slug{s}))
	require.NoError(t, r.Run(context.Background(), []Slug{s}))
	assert.Len(t, acq.calls, 1, "second run must not acquire again")
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Repos.WithLabelValues("cached")))
}

func TestRunner_Run_includeBase(t *testing.T) {
	s := Slug{"org", "repo"}
	r, _ := newRunner(t, &fakeAcquirer{repos: map[Slug]vcs.Repository{s: sharedMerges()}})
	r.IncludeBase = true

	require.NoError(t, r.Run(context.Background(), []Slug{s}))
	assert.Equal(t, strings.Join([]string{
		"idx,branch_name,merge_commit,parent_1,parent_2,notes,base_commit",
		"1,refs/heads/feature,M1,A,C,,R",
		"2,refs/heads/master,M2,B,D,,M1",
		"",
	}, "\n"), readFile(t, OutputPath(r.OutputDir, s)))
}

func TestRunner_Run_fatalErrorIsIsolated(t *testing.T) {
	good := Slug{"org", "good"}
	broken := Slug{"org", "broken"}
	acq := &fakeAcquirer{repos: map[Slug]vcs.Repository{
		good:   sharedMerges(),
		broken: sharedMerges().Remove("C"),
	}}
	r, _ := newRunner(t, acq)

	err := r.Run(context.Background(), []Slug{broken, good})
	require.Error(t, err)
	var gae *merges.GraphAccessError
	assert.True(t, errors.As(err, &gae), "got %v", err)
	assert.Contains(t, err.Error(), "org/broken")

	_, statErr := os.Stat(OutputPath(r.OutputDir, broken))
	assert.True(t, os.IsNotExist(statErr), "a failed repository must not look done")
	_, statErr = os.Stat(OutputPath(r.OutputDir, broken) + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temporary output must be removed")

	assert.FileExists(t, OutputPath(r.OutputDir, good))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Repos.WithLabelValues("failed")))
}

func TestRunner_Run_cloneAcquirer(t *testing.T) {
	src := vcstesting.InitGitRepository(t, append(vcstesting.MergeFixture, "git update-ref refs/pull/7/head feature")...)

	for _, backend := range []string{"git", "gogit"} {
		t.Run(backend, func(t *testing.T) {
			acq := &CloneAcquirer{
				Backend:           backend,
				FetchPullRequests: true,
				URL:               func(Slug) string { return src },
			}
			r, _ := newRunner(t, acq)
			s := Slug{"org", "fixture"}
			require.NoError(t, r.Run(context.Background(), []Slug{s}))

			out := readFile(t, OutputPath(r.OutputDir, s))
			lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
			require.Len(t, lines, 3, out)

			m := vcstesting.RevParse(t, src, "master")
			u := vcstesting.RevParse(t, src, "unrelated")
			assert.Contains(t, out, ","+m+","+vcstesting.RevParse(t, src, "master^1")+","+vcstesting.RevParse(t, src, "master^2")+",\n")
			assert.Contains(t, out, ","+u+","+m+","+vcstesting.RevParse(t, src, "orphan")+",two initial commits\n")

			_, err := os.Stat(filepath.Join(r.ScratchDir, "org", "fixture"))
			assert.True(t, os.IsNotExist(err), "clone is removed after mining")
		})
	}
}

func TestRunner_Run_repeatedRepository(t *testing.T) {
	s := Slug{"org", "repo"}
	acq := &fakeAcquirer{repos: map[Slug]vcs.Repository{s: sharedMerges()}}
	r, _ := newRunner(t, acq)

	require.NoError(t, r.Run(context.Background(), []Slug{s, {"org", "other"}, s, s}))
	assert.Equal(t, []Slug{{"org", "other"}, s}, sortedCalls(acq))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics.Repos.WithLabelValues("mined")))
	assert.EqualValues(t, 2, r.Merges())
}

// sortedCalls returns the slugs acq was asked for, in slug order.
func sortedCalls(acq *fakeAcquirer) []Slug {
	acq.mu.Lock()
	defer acq.mu.Unlock()
	calls := append([]Slug(nil), acq.calls...)
	sort.Slice(calls, func(i, j int) bool { return calls[i].String() < calls[j].String() })
	return calls
}
