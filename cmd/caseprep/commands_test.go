package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseprep/internal/crypto"
	"caseprep/internal/domain"
	"caseprep/internal/embedding/hashing"
	apperr "caseprep/internal/errors"
	"caseprep/internal/index"
	"caseprep/internal/metadata"
)

const testKeyEnv = "CASEPREP_TEST_DECRYPTION_KEY"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

var corpusRecords = []domain.Record{
	{CaseID: "A", QuestionID: "1", Answer: "Estimate the market from population and coffee consumption.", Feedback: "State assumptions."},
	{CaseID: "A", QuestionID: "1", Answer: "Segment coffee drinkers by age and price sensitivity.", Feedback: "Good segmentation."},
	{CaseID: "A", QuestionID: "2", Answer: "Profit equals revenue minus costs.", Feedback: "Go deeper on costs."},
	{CaseID: "B", QuestionID: "1", Answer: "Airline fleet utilisation drives margins.", Feedback: "Quantify utilisation."},
	{CaseID: "A", QuestionID: "1", Answer: "Coffee market size from number of cafes times revenue per cafe.", Feedback: "Sanity-check the result."},
}

// setupStore writes plaintext artifacts, a config, and seals the artifacts
// through the seal command. It returns the config path.
func setupStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	key, err := crypto.GenerateKey(crypto.CipherFernet)
	require.NoError(t, err)
	t.Setenv(testKeyEnv, key)

	const dim = 64
	emb := hashing.New(dim)
	vectors := make([][]float32, len(corpusRecords))
	for i, r := range corpusRecords {
		vectors[i], err = emb.Embed(context.Background(), r.Answer)
		require.NoError(t, err)
	}
	ix, err := index.FromVectors(index.InnerProduct, vectors)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.faiss"), index.Marshal(ix), 0o600))

	var meta bytes.Buffer
	require.NoError(t, metadata.Encode(&meta, corpusRecords))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), meta.Bytes(), 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`store:
  index: %s
  metadata: %s
  default_n: 2
key:
  cipher: fernet
  source: env://%s
embedder:
  provider: hashing
  dimension: %d
log:
  level: error
`, filepath.Join(dir, "index.enc"), filepath.Join(dir, "metadata.enc"), testKeyEnv, dim)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	for _, name := range []string{"index", "metadata"} {
		plain := filepath.Join(dir, "index.faiss")
		if name == "metadata" {
			plain = filepath.Join(dir, "metadata.json")
		}
		out, err := execute(t, "seal", "--config", cfgPath, "--in", plain, "--out", filepath.Join(dir, name+".enc"))
		require.NoError(t, err)
		assert.Contains(t, out, "fernet")
	}
	return cfgPath
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"query", "prompt", "explore", "verify", "seal", "keygen"} {
		assert.Contains(t, out, sub)
	}
}

func TestKeygen(t *testing.T) {
	for _, cipher := range []string{crypto.CipherFernet, crypto.CipherSecretbox} {
		t.Run(cipher, func(t *testing.T) {
			out, err := execute(t, "keygen", "--cipher", cipher)
			require.NoError(t, err)
			_, err = crypto.New(cipher, strings.TrimSpace(out))
			assert.NoError(t, err)
		})
	}

	_, err := execute(t, "keygen", "--cipher", "rot13")
	assert.Error(t, err)
}

func TestQuery_JSON(t *testing.T) {
	cfgPath := setupStore(t)

	out, err := execute(t, "query", "--config", cfgPath, "--case", "A", "--question", "1", "--json",
		"how", "big", "is", "the", "coffee", "market")
	require.NoError(t, err)

	var rows []neighborJSON
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.NotEmpty(t, rows)
	assert.LessOrEqual(t, len(rows), 2)
	for _, r := range rows {
		assert.Equal(t, "A", r.CaseID)
		assert.Equal(t, "1", r.QuestionID)
	}
}

func TestQuery_EmptyScope(t *testing.T) {
	cfgPath := setupStore(t)

	out, err := execute(t, "query", "--config", cfgPath, "--case", "C", "--question", "9", "-n", "3", "coffee")
	require.NoError(t, err)
	assert.Contains(t, out, "No past answers found for C/9.")
}

func TestQuery_WrongKey(t *testing.T) {
	cfgPath := setupStore(t)
	other, err := crypto.GenerateKey(crypto.CipherFernet)
	require.NoError(t, err)
	t.Setenv(testKeyEnv, other)

	_, err = execute(t, "query", "--config", cfgPath, "--case", "A", "--question", "1", "coffee")
	require.Error(t, err)
	assert.True(t, apperr.IsDecryption(err))
	assert.NotContains(t, err.Error(), other)
}

func TestQuery_RequiresScope(t *testing.T) {
	cfgPath := setupStore(t)

	_, err := execute(t, "query", "--config", cfgPath, "--case", "A", "coffee")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	cfgPath := setupStore(t)

	out, err := execute(t, "verify", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "5 vectors, dimension 64, inner_product")
	assert.Contains(t, out, "5 records in 3 scopes")
	assert.Contains(t, out, "hashing")
}

func TestVerify_Metrics(t *testing.T) {
	cfgPath := setupStore(t)

	out, err := execute(t, "verify", "--config", cfgPath, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, `caseprep_resource_loads_total{outcome="ok",resource="index"}`)
	assert.Contains(t, out, `caseprep_resource_loads_total{outcome="ok",resource="metadata"}`)
	assert.Contains(t, out, `caseprep_resource_load_duration_seconds_count{resource="embedder"}`)
	assert.Contains(t, out, "caseprep_corpus_vectors 5")
}

func TestPrompt_FromFiles(t *testing.T) {
	cfgPath := setupStore(t)
	dir := filepath.Dir(cfgPath)
	question := filepath.Join(dir, "question.txt")
	rubric := filepath.Join(dir, "rubric.txt")
	require.NoError(t, os.WriteFile(question, []byte("How large is the coffee market?\n"), 0o600))
	require.NoError(t, os.WriteFile(rubric, []byte("Structure and math"), 0o600))

	out, err := execute(t, "prompt", "--config", cfgPath, "--case", "A", "--question", "1",
		"--question-file", question, "--rubric-file", rubric,
		"The coffee market is population times cups per day.")
	require.NoError(t, err)
	assert.Contains(t, out, "Case Question:\nHow large is the coffee market?")
	assert.Contains(t, out, "Historical Examples:\nPast Answer: ")
	assert.Contains(t, out, "Rubric:\nStructure and math")
	assert.NotContains(t, out, "Airline")
}

func TestPrompt_FromCasebook(t *testing.T) {
	cfgPath := setupStore(t)
	dir := filepath.Dir(cfgPath)

	book := filepath.Join(dir, "cases.json")
	require.NoError(t, os.WriteFile(book, []byte(`{"A": {"case_title": "Coffee", "questions": {
		"1": {"question_text": "Size the coffee market.", "rubric": "Math", "generation_instructions": "Three bullets."}}}}`), 0o600))
	_, err := execute(t, "seal", "--config", cfgPath, "--in", book, "--out", filepath.Join(dir, "cases.enc"))
	require.NoError(t, err)

	cfg, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	cfg = bytes.Replace(cfg, []byte("  default_n: 2\n"),
		[]byte("  default_n: 2\n  casebook: "+filepath.Join(dir, "cases.enc")+"\n"), 1)
	require.NoError(t, os.WriteFile(cfgPath, cfg, 0o600))

	out, err := execute(t, "prompt", "--config", cfgPath, "--case", "A", "--question", "1", "coffee", "cafes")
	require.NoError(t, err)
	assert.Contains(t, out, "Size the coffee market.")
	assert.Contains(t, out, "Rubric:\nMath")
	assert.Contains(t, out, "Three bullets.")

	out, err = execute(t, "verify", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "casebook:  1 cases")

	_, err = execute(t, "prompt", "--config", cfgPath, "--case", "A", "--question", "7", "coffee")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}
