// Package career implements the coaching tools the chat assistant calls:
// resume analysis, job requirements and learning resources.
package career

import (
	"regexp"
	"strconv"
	"strings"
)

type Level string

const (
	LevelJunior Level = "junior"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
)

type ResumeAnalysis struct {
	ExtractedSkills   []string `json:"extractedSkills"`
	YearsOfExperience int      `json:"yearsOfExperience"`
	CurrentLevel      Level    `json:"currentLevel"`
}

type JobRequirements struct {
	Role           string   `json:"role"`
	RequiredSkills []string `json:"requiredSkills"`
	AverageSalary  string   `json:"averageSalary"`
	DemandLevel    string   `json:"demandLevel"`
}

type Resource struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

type LearningResources struct {
	Skill         string     `json:"skill"`
	Resources     []Resource `json:"resources"`
	EstimatedTime string     `json:"estimatedTime"`
}

var techKeywords = []string{
	"react", "node", "typescript", "javascript", "python", "java",
	"aws", "docker", "kubernetes", "sql", "mongodb", "redis",
	"git", "ci/cd", "rest api", "graphql", "nextjs", "express",
	"html", "css", "tailwind", "figma", "agile", "scrum",
}

var roleRequirements = map[string][]string{
	"full-stack developer": {"react", "node", "typescript", "sql", "docker", "aws", "git", "rest api"},
	"frontend developer":   {"react", "typescript", "css", "tailwind", "nextjs", "figma", "testing"},
	"backend developer":    {"node", "python", "sql", "docker", "kubernetes", "aws", "redis", "graphql"},
	"data scientist":       {"python", "sql", "machine learning", "tensorflow", "pandas", "statistics"},
	"devops engineer":      {"docker", "kubernetes", "aws", "terraform", "ci/cd", "linux", "monitoring"},
	"sde-2":                {"system design", "dsa", "react", "node", "typescript", "sql", "docker", "aws"},
}

var genericRequirements = []string{"programming", "problem solving", "communication"}

var yearsPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\+?\s*(?:years?|yrs?)\b`)

// AnalyzeResume scans resume text for known technology keywords. Matching
// is substring based, so "java" also matches inside "javascript".
func AnalyzeResume(text string) ResumeAnalysis {
	lower := strings.ToLower(text)
	found := []string{}
	for _, kw := range techKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}

	level := LevelJunior
	switch {
	case len(found) > 10:
		level = LevelSenior
	case len(found) > 5:
		level = LevelMid
	}

	return ResumeAnalysis{
		ExtractedSkills:   found,
		YearsOfExperience: yearsOfExperience(text),
		CurrentLevel:      level,
	}
}

// yearsOfExperience takes the largest "N years" mention, defaulting to 1.
func yearsOfExperience(text string) int {
	best := 0
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	if best == 0 {
		return 1
	}
	return best
}

func GetJobRequirements(role, location string) JobRequirements {
	reqs, ok := roleRequirements[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		reqs = genericRequirements
	}
	out := make([]string, len(reqs))
	copy(out, reqs)

	// TODO: localize salary bands once a market data source exists for location.
	_ = location
	return JobRequirements{
		Role:           role,
		RequiredSkills: out,
		AverageSalary:  "$80,000 - $150,000",
		DemandLevel:    "high",
	}
}

func GetLearningResources(skill, level string) LearningResources {
	estimate := "2 weeks"
	if level == "beginner" {
		estimate = "4 weeks"
	}
	return LearningResources{
		Skill: skill,
		Resources: []Resource{
			{Name: "Official Documentation", Type: "documentation", URL: "#"},
			{Name: skill + " Crash Course - YouTube", Type: "tutorial", URL: "#"},
			{Name: "Complete " + skill + " Bootcamp - Udemy", Type: "course", URL: "#"},
			{Name: "Build a project with " + skill, Type: "project", URL: "#"},
		},
		EstimatedTime: estimate,
	}
}
