package career

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/ascend/internal/quest"
)

func TestAnalyzeResumeLevels(t *testing.T) {
	a := AnalyzeResume("Python developer, 3 years")
	assert.Equal(t, []string{"python"}, a.ExtractedSkills)
	assert.Equal(t, LevelJunior, a.CurrentLevel)
	assert.Equal(t, 3, a.YearsOfExperience)

	a = AnalyzeResume("React, Node, TypeScript, AWS, Docker, SQL")
	assert.Len(t, a.ExtractedSkills, 6)
	assert.Equal(t, LevelMid, a.CurrentLevel)
	assert.Equal(t, 1, a.YearsOfExperience)

	a = AnalyzeResume("react node typescript python aws docker kubernetes sql mongodb redis graphql, 12+ yrs and 4 years lead")
	assert.Greater(t, len(a.ExtractedSkills), 10)
	assert.Equal(t, LevelSenior, a.CurrentLevel)
	assert.Equal(t, 12, a.YearsOfExperience)
}

func TestAnalyzeResumeSubstringMatch(t *testing.T) {
	a := AnalyzeResume("JavaScript only")
	assert.Equal(t, []string{"javascript", "java"}, a.ExtractedSkills)

	empty := AnalyzeResume("")
	assert.NotNil(t, empty.ExtractedSkills)
	assert.Empty(t, empty.ExtractedSkills)
}

func TestJobRequirements(t *testing.T) {
	jr := GetJobRequirements("DevOps Engineer", "Berlin")
	assert.Equal(t, "DevOps Engineer", jr.Role)
	assert.Contains(t, jr.RequiredSkills, "terraform")
	assert.Equal(t, "$80,000 - $150,000", jr.AverageSalary)
	assert.Equal(t, "high", jr.DemandLevel)

	jr.RequiredSkills[0] = "mutated"
	assert.Equal(t, "docker", GetJobRequirements("devops engineer", "").RequiredSkills[0])

	other := GetJobRequirements("Astronaut", "")
	assert.Equal(t, []string{"programming", "problem solving", "communication"}, other.RequiredSkills)
}

func TestLearningResources(t *testing.T) {
	lr := GetLearningResources("Go", "beginner")
	assert.Equal(t, "4 weeks", lr.EstimatedTime)
	require.Len(t, lr.Resources, 4)
	assert.Equal(t, "Go Crash Course - YouTube", lr.Resources[1].Name)
	assert.Equal(t, "project", lr.Resources[3].Type)

	assert.Equal(t, "2 weeks", GetLearningResources("Go", "advanced").EstimatedTime)
}

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanJSON(in))
	}
}

func TestParseAnalysis(t *testing.T) {
	a, err := parseAnalysis("```json\n{\"extractedSkills\":[\"React\",\"react\",\" Go \"],\"yearsOfExperience\":4,\"currentLevel\":\"expert\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "go"}, a.ExtractedSkills)
	assert.Equal(t, 4, a.YearsOfExperience)
	assert.Equal(t, LevelJunior, a.CurrentLevel)

	_, err = parseAnalysis("   ")
	require.ErrorIs(t, err, errEmptyResponse)

	_, err = parseAnalysis("not json")
	require.Error(t, err)
}

func TestRetry(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), 3, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = retry(ctx, 3, func() (int, error) { return 0, errors.New("down") })
	require.ErrorIs(t, err, context.Canceled)
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) Analyze(_ context.Context, _ string) (ResumeAnalysis, error) {
	if s.err != nil {
		return ResumeAnalysis{}, s.err
	}
	return ResumeAnalysis{ExtractedSkills: []string{"go"}, YearsOfExperience: 9, CurrentLevel: LevelMid}, nil
}

func newToolServer(t *testing.T, analyzer Analyzer) (*httptest.Server, *quest.Ledgers) {
	t.Helper()
	ledgers := quest.NewLedgers(quest.NewMemoryBackend(), quest.NewBus())
	h := NewHandler(analyzer, ledgers, &HandlerConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, ledgers
}

func postTool(t *testing.T, srv *httptest.Server, name, body string) (int, json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tools/"+name, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Ascend-Owner", "ana")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env.Data
}

func completed(t *testing.T, ledgers *quest.Ledgers, owner string) map[quest.ID]bool {
	t.Helper()
	qs, err := ledgers.For(owner).Quests(context.Background())
	require.NoError(t, err)
	out := map[quest.ID]bool{}
	for _, q := range qs {
		out[q.ID] = q.Completed
	}
	return out
}

func TestToolsCompleteQuests(t *testing.T) {
	srv, ledgers := newToolServer(t, stubAnalyzer{})

	status, data := postTool(t, srv, ToolAnalyzeResume, `{"resumeText":"gopher"}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"extractedSkills":["go"],"yearsOfExperience":9,"currentLevel":"mid"}`, string(data))

	status, _ = postTool(t, srv, ToolGetJobRequirements, `{"targetRole":"SDE-2"}`)
	require.Equal(t, http.StatusOK, status)

	status, data = postTool(t, srv, ToolGetLearningResources, `{"skill":"Rust"}`)
	require.Equal(t, http.StatusOK, status)
	var lr LearningResources
	require.NoError(t, json.Unmarshal(data, &lr))
	assert.Equal(t, "2 weeks", lr.EstimatedTime)

	done := completed(t, ledgers, "ana")
	assert.True(t, done[quest.IDSkill])
	assert.True(t, done[quest.IDJob])
	assert.True(t, done[quest.IDRoadmap])
	assert.False(t, done[quest.IDResume])
}

func TestToolsRejectBadInput(t *testing.T) {
	srv, ledgers := newToolServer(t, nil)

	status, _ := postTool(t, srv, ToolAnalyzeResume, `{"resumeText":"  "}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postTool(t, srv, ToolGetLearningResources, `{"skill":"Go","level":"guru"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postTool(t, srv, ToolGetJobRequirements, `{`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postTool(t, srv, "bookFlight", `{}`)
	assert.Equal(t, http.StatusNotFound, status)

	for id, done := range completed(t, ledgers, "ana") {
		assert.False(t, done, "quest %s must stay open after failed calls", id)
	}
}

func TestToolAnalyzerFailure(t *testing.T) {
	srv, ledgers := newToolServer(t, stubAnalyzer{err: errors.New("model down")})

	status, _ := postTool(t, srv, ToolAnalyzeResume, `{"resumeText":"go"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, completed(t, ledgers, "ana")[quest.IDSkill])
}
