package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"pgregory.net/rapid"

	"github.com/fyrsmithlabs/tutorialkit/internal/assets"
	"github.com/fyrsmithlabs/tutorialkit/internal/config"
	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
	"github.com/fyrsmithlabs/tutorialkit/internal/publish"
	"github.com/fyrsmithlabs/tutorialkit/internal/telemetry"
)

const configTemplate = `global_vars:
  data_dir: %q
  species: %q
  overwrite: false

workflows:
  consensus:
    name: consensus.qmd
    title: Building a Consensus Graph
    species_specific: true
    connect_id: null
    artifacts:
      a: x/y.csv
      graph: graphs/consensus.pkl
  downloads:
    name: downloading_pathway_data.qmd
    title: Downloading Pathway Data
    species_specific: false
    connect_id: 6d1f7c1e
    artifacts:
      pw_index: sbml/pw_index.tsv
  intro:
    name: intro.qmd
    title: Introduction
    species_specific: false
    artifacts: null
`

func writeConfig(t *testing.T, dataDir, species string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(configTemplate, dataDir, species)), 0o600))
	return path
}

// fakeLoader records requests and returns a path under the target dir.
type fakeLoader struct {
	requests []assets.Request
	err      error
}

func (f *fakeLoader) Load(_ context.Context, req assets.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(req.TargetDir, req.AssetID), nil
}

// fakePublisher records requests and returns a fixed exit code.
type fakePublisher struct {
	requests []publish.Request
	code     int
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, req publish.Request) (int, error) {
	f.requests = append(f.requests, req)
	return f.code, f.err
}

func TestNew_SpeciesSpecificArtifacts(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "d")
	r, err := New(writeConfig(t, dataDir, "Homo sapiens"), "consensus")
	require.NoError(t, err)

	assert.Equal(t, "consensus", r.Workflow())
	assert.Equal(t, dataDir, r.DataDir())
	assert.Equal(t, filepath.Join(dataDir, "Homo_sapiens"), r.SpeciesDataDir())
	assert.Equal(t, "Homo sapiens", r.Species())
	assert.False(t, r.Overwrite())

	assert.Equal(t, filepath.Join(dataDir, "Homo_sapiens", "x", "y.csv"), r.Artifacts()["a"])
	assert.DirExists(t, filepath.Join(dataDir, "Homo_sapiens", "x"))
	assert.DirExists(t, filepath.Join(dataDir, "Homo_sapiens", "graphs"))
	assert.NoFileExists(t, r.Artifacts()["a"])
	assert.Nil(t, r.Related())
}

func TestNew_GlobalArtifacts(t *testing.T) {
	dataDir := t.TempDir()
	r, err := New(writeConfig(t, dataDir, "Homo sapiens"), "downloads")
	require.NoError(t, err)

	assert.Equal(t, Artifacts{"pw_index": filepath.Join(dataDir, "sbml", "pw_index.tsv")}, r.Artifacts())
	assert.DirExists(t, filepath.Join(dataDir, "sbml"))
	assert.Equal(t, "6d1f7c1e", r.WorkflowSettings().AppID())
}

func TestResolveArtifacts_NullArtifacts(t *testing.T) {
	r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "intro")
	require.NoError(t, err)
	assert.Nil(t, r.Artifacts())

	got, err := r.ResolveArtifacts("intro")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveArtifacts_EmptyMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`global_vars:
  data_dir: %q
  species: Homo sapiens
  overwrite: false
workflows:
  intro:
    name: intro.qmd
    title: Introduction
    species_specific: false
    artifacts: {}
`, t.TempDir())), 0o600))

	r, err := New(path, "intro")
	require.NoError(t, err)
	assert.NotNil(t, r.Artifacts())
	assert.Empty(t, r.Artifacts())

	got, err := r.ResolveArtifacts("intro")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolveArtifacts_CreatesNothing(t *testing.T) {
	dataDir := t.TempDir()
	r, err := New(writeConfig(t, dataDir, "Homo sapiens"), "intro")
	require.NoError(t, err)

	got, err := r.ResolveArtifacts("consensus")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "Homo_sapiens", "x", "y.csv"), got["a"])
	assert.NoDirExists(t, filepath.Join(dataDir, "Homo_sapiens"))
}

func TestNew_RelatedWorkflows(t *testing.T) {
	dataDir := t.TempDir()
	r, err := New(writeConfig(t, dataDir, "Mus musculus"), "downloads", WithRelated("consensus", "intro"))
	require.NoError(t, err)

	related := r.Related()
	require.Len(t, related, 2)
	assert.Equal(t, filepath.Join(dataDir, "Mus_musculus", "graphs", "consensus.pkl"), related["consensus"]["graph"])
	assert.Nil(t, related["intro"])

	// Only the primary workflow gets directories.
	assert.DirExists(t, filepath.Join(dataDir, "sbml"))
	assert.NoDirExists(t, filepath.Join(dataDir, "Mus_musculus"))
}

func TestNew_UnknownWorkflow(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "Homo sapiens")

	for _, tc := range []struct {
		name string
		opts []Option
		wf   string
	}{
		{name: "primary", wf: "missing"},
		{name: "related", wf: "intro", opts: []Option{WithRelated("consensus", "missing")}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := New(path, tc.wf, tc.opts...)
			assert.Nil(t, r)

			var uw *config.UnknownWorkflowError
			require.True(t, errors.As(err, &uw))
			assert.Equal(t, "missing", uw.Name)
			assert.Equal(t, []string{"consensus", "downloads", "intro"}, uw.Available)
			assert.Contains(t, err.Error(), "consensus, downloads, intro")
		})
	}
}

func TestNew_UnknownRelatedCreatesNoDirectories(t *testing.T) {
	dataDir := t.TempDir()
	_, err := New(writeConfig(t, dataDir, "Homo sapiens"), "consensus", WithRelated("missing"))
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(dataDir, "Homo_sapiens"))
}

func TestNew_ConfigErrors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"), "consensus")
	assert.ErrorIs(t, err, config.ErrNotFound)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workflows: [\n"), 0o600))
	_, err = New(bad, "consensus")
	assert.ErrorIs(t, err, config.ErrParse)
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.Reset()
	t.Cleanup(homedir.Reset)

	r, err := New(writeConfig(t, "~/tutorial_data", "Homo sapiens"), "intro")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tutorial_data"), r.DataDir())
}

func TestNew_IsIdempotent(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, dataDir, "Homo sapiens")

	_, err := New(path, "consensus")
	require.NoError(t, err)

	existing := filepath.Join(dataDir, "Homo_sapiens", "x", "y.csv")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	tl := logging.NewTestLogger()
	_, err = New(path, "consensus", WithLogger(tl.Logger))
	require.NoError(t, err)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
	tl.AssertNotLogged(t, zapcore.InfoLevel, "creating it")
}

func TestNew_ArtifactParentIsAFile(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "Homo_sapiens"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "Homo_sapiens", "x"), nil, 0o644))

	_, err := New(writeConfig(t, dataDir, "Homo sapiens"), "consensus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestSpeciesDataDir_Property(t *testing.T) {
	root := t.TempDir()
	n := 0

	rapid.Check(t, func(rt *rapid.T) {
		species := rapid.StringMatching(`[A-Z][a-z]{1,8}( [a-z]{1,8}){0,3}`).Draw(rt, "species")
		n++
		dataDir := filepath.Join(root, fmt.Sprintf("run-%d", n))

		path := filepath.Join(root, fmt.Sprintf("config-%d.yaml", n))
		require.NoError(rt, os.WriteFile(path, []byte(fmt.Sprintf(configTemplate, dataDir, species)), 0o600))

		r, err := New(path, "consensus")
		require.NoError(rt, err)

		assert.Equal(rt, filepath.Join(dataDir, NormalizeSpecies(species)), r.SpeciesDataDir())
		assert.NotContains(rt, filepath.Base(r.SpeciesDataDir()), " ")
		assert.Equal(rt, filepath.Join(r.SpeciesDataDir(), "x", "y.csv"), r.Artifacts()["a"])
		assert.DirExists(rt, filepath.Join(r.SpeciesDataDir(), "x"))
	})
}

func TestNormalizeSpecies(t *testing.T) {
	assert.Equal(t, "Homo_sapiens", NormalizeSpecies("Homo sapiens"))
	assert.Equal(t, "Mus__musculus", NormalizeSpecies("Mus  musculus"))
	assert.Equal(t, "Yeast", NormalizeSpecies("Yeast"))
}

func TestLoadAsset(t *testing.T) {
	dataDir := t.TempDir()
	loader := &fakeLoader{}
	r, err := New(writeConfig(t, dataDir, "Homo sapiens"), "intro", WithAssetLoader(loader))
	require.NoError(t, err)

	path, err := r.LoadAsset(context.Background(), "test_pathway.tar.gz", "sbml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "test_pathway.tar.gz"), path)

	require.Len(t, loader.requests, 1)
	req := loader.requests[0]
	assert.Equal(t, dataDir, req.TargetDir)
	assert.Equal(t, "sbml", req.SubassetID)
	assert.Contains(t, req.InitMessage, "%s")

	loader.err = errors.New("bucket unavailable")
	_, err = r.LoadAsset(context.Background(), "x.tsv", "")
	assert.ErrorContains(t, err, "bucket unavailable")
}

func connectSettings() config.ConnectSettings {
	return config.ConnectSettings{
		"prod": {URL: "https://connect.example.org", PATSecretName: "CONNECT_PROD_PAT"},
	}
}

func envWith(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDeploy(t *testing.T) {
	dataDir := t.TempDir()

	t.Run("new content", func(t *testing.T) {
		pub := &fakePublisher{}
		r, err := New(writeConfig(t, dataDir, "Homo sapiens"), "consensus",
			WithPublisher(pub), WithLookupEnv(envWith(map[string]string{"CONNECT_PROD_PAT": "pat-1"})))
		require.NoError(t, err)

		require.NoError(t, r.Deploy(context.Background(), "prod", connectSettings(), "/opt/venv"))
		require.Len(t, pub.requests, 1)
		req := pub.requests[0]
		assert.Equal(t, "consensus.qmd", req.NotebookFile)
		assert.Equal(t, "Building a Consensus Graph", req.Title)
		assert.Equal(t, "https://connect.example.org", req.ServerURL)
		assert.Equal(t, "pat-1", req.APIKey.Value())
		assert.Equal(t, "", req.AppID)
		assert.Equal(t, "/opt/venv", req.VenvPath)
		assert.Equal(t, publish.DefaultAssetType, req.AssetType)
		assert.Contains(t, req.Args(), "--new")
	})

	t.Run("existing content", func(t *testing.T) {
		pub := &fakePublisher{}
		r, err := New(writeConfig(t, dataDir, "Homo sapiens"), "downloads",
			WithPublisher(pub), WithAssetType("notebook"),
			WithLookupEnv(envWith(map[string]string{"CONNECT_PROD_PAT": "pat-1"})))
		require.NoError(t, err)

		require.NoError(t, r.Deploy(context.Background(), "prod", connectSettings(), ""))
		req := pub.requests[0]
		assert.Equal(t, "6d1f7c1e", req.AppID)
		assert.Equal(t, "notebook", req.AssetType)
	})
}

func TestDeploy_UnknownServer(t *testing.T) {
	pub := &fakePublisher{}
	r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "consensus", WithPublisher(pub))
	require.NoError(t, err)

	err = r.Deploy(context.Background(), "staging", connectSettings(), "")
	var us *config.UnknownServerError
	require.True(t, errors.As(err, &us))
	assert.Equal(t, []string{"prod"}, us.Available)
	assert.Empty(t, pub.requests)
}

func TestDeploy_MissingCredential(t *testing.T) {
	pub := &fakePublisher{}
	r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "consensus",
		WithPublisher(pub), WithLookupEnv(envWith(nil)))
	require.NoError(t, err)

	err = r.Deploy(context.Background(), "prod", connectSettings(), "")
	var mc *config.MissingCredentialError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "CONNECT_PROD_PAT", mc.EnvVar)
	assert.Empty(t, pub.requests)
}

func TestDeploy_InvalidSettings(t *testing.T) {
	pub := &fakePublisher{}
	r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "consensus", WithPublisher(pub))
	require.NoError(t, err)

	err = r.Deploy(context.Background(), "prod", config.ConnectSettings{"prod": {URL: "https://x.example.org"}}, "")
	assert.ErrorIs(t, err, config.ErrValidation)
	assert.Empty(t, pub.requests)
}

func TestDeploy_PublishFailures(t *testing.T) {
	env := WithLookupEnv(envWith(map[string]string{"CONNECT_PROD_PAT": "pat-1"}))

	t.Run("non-zero exit", func(t *testing.T) {
		r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "consensus",
			WithPublisher(&fakePublisher{code: 2}), env)
		require.NoError(t, err)

		err = r.Deploy(context.Background(), "prod", connectSettings(), "")
		var pe *publish.Error
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 2, pe.ExitCode)
	})

	t.Run("could not start", func(t *testing.T) {
		cause := errors.New("rsconnect: executable file not found")
		r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "consensus",
			WithPublisher(&fakePublisher{code: -1, err: cause}), env)
		require.NoError(t, err)

		err = r.Deploy(context.Background(), "prod", connectSettings(), "")
		var pe *publish.Error
		require.True(t, errors.As(err, &pe))
		assert.ErrorIs(t, err, cause)
	})
}

func TestTracing(t *testing.T) {
	rec := telemetry.Record(t)
	env := WithLookupEnv(envWith(map[string]string{"CONNECT_PROD_PAT": "pat-1"}))

	r, err := New(writeConfig(t, t.TempDir(), "Homo sapiens"), "downloads",
		WithPublisher(&fakePublisher{code: 3}), WithAssetLoader(&fakeLoader{}), env)
	require.NoError(t, err)

	_, err = r.LoadAsset(context.Background(), "reactome_members.tsv", "")
	require.NoError(t, err)
	rec.AssertSpanAttribute(t, "resolver.LoadAsset", "asset.id", "reactome_members.tsv")
	rec.AssertSpanAttribute(t, "resolver.LoadAsset", "workflow", "downloads")

	require.Error(t, r.Deploy(context.Background(), "prod", connectSettings(), ""))
	rec.AssertSpanAttribute(t, "resolver.Deploy", "connect.server", "prod")
	rec.AssertSpanAttribute(t, "resolver.Deploy", "publish.new", false)
	rec.AssertSpanAttribute(t, "resolver.Deploy", "publish.exit_code", int64(3))
	rec.AssertSpanError(t, "resolver.Deploy")
}
