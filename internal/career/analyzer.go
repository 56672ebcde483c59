package career

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Analyzer turns resume text into a skill profile.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText string) (ResumeAnalysis, error)
}

// KeywordAnalyzer is the offline Analyzer backed by AnalyzeResume.
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Analyze(_ context.Context, resumeText string) (ResumeAnalysis, error) {
	return AnalyzeResume(resumeText), nil
}

var errEmptyResponse = errors.New("empty agent response")

// CleanJSON strips the markdown code fence models like to wrap JSON in.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

// parseAnalysis decodes an agent answer. Skills are lowercased and
// deduplicated; an unknown level is recomputed from the skill count.
func parseAnalysis(output string) (ResumeAnalysis, error) {
	if strings.TrimSpace(output) == "" {
		return ResumeAnalysis{}, errEmptyResponse
	}
	var a ResumeAnalysis
	if err := json.Unmarshal([]byte(CleanJSON(output)), &a); err != nil {
		return ResumeAnalysis{}, fmt.Errorf("json unmarshal error: %w", err)
	}

	seen := make(map[string]bool, len(a.ExtractedSkills))
	skills := make([]string, 0, len(a.ExtractedSkills))
	for _, s := range a.ExtractedSkills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		skills = append(skills, s)
	}
	a.ExtractedSkills = skills

	switch a.CurrentLevel {
	case LevelJunior, LevelMid, LevelSenior:
	default:
		a.CurrentLevel = LevelJunior
		switch {
		case len(skills) > 10:
			a.CurrentLevel = LevelSenior
		case len(skills) > 5:
			a.CurrentLevel = LevelMid
		}
	}
	if a.YearsOfExperience < 0 {
		a.YearsOfExperience = 0
	}
	return a, nil
}

// retry retries fn up to attempts times with a linear backoff, giving up
// early when ctx is done.
func retry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(time.Duration(500*(i+1)) * time.Millisecond):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
