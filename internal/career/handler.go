package career

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/muhammadolammi/ascend/internal/quest"
	"github.com/muhammadolammi/ascend/internal/questapi"
)

const maxToolBody = 1 << 20

// Tool names as the chat assistant registers them.
const (
	ToolAnalyzeResume        = "analyzeResume"
	ToolGetJobRequirements   = "getJobRequirements"
	ToolGetLearningResources = "getLearningResources"
)

// toolQuests maps each tool to the quest a successful call completes.
var toolQuests = map[string]quest.ID{
	ToolAnalyzeResume:        quest.IDSkill,
	ToolGetJobRequirements:   quest.IDJob,
	ToolGetLearningResources: quest.IDRoadmap,
}

type analyzeResumeInput struct {
	ResumeText string `json:"resumeText"`
}

type jobRequirementsInput struct {
	TargetRole string `json:"targetRole"`
	Location   string `json:"location,omitempty"`
}

type learningResourcesInput struct {
	Skill string `json:"skill"`
	Level string `json:"level"`
}

var errInvalidInput = errors.New("invalid tool input")

type HandlerConfig struct {
	Logger       *slog.Logger
	DefaultOwner string
}

type handler struct {
	analyzer Analyzer
	ledgers  *quest.Ledgers
	config   *HandlerConfig
}

// NewHandler serves POST /api/tools/{name}. A nil analyzer means
// KeywordAnalyzer.
func NewHandler(analyzer Analyzer, ledgers *quest.Ledgers, cfg *HandlerConfig) http.Handler {
	if cfg == nil {
		cfg = &HandlerConfig{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = questapi.DefaultOwner
	}
	if analyzer == nil {
		analyzer = KeywordAnalyzer{}
	}

	h := &handler{analyzer: analyzer, ledgers: ledgers, config: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tools/{name}", h.handleTool)
	return mux
}

func (h *handler) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	questID, ok := toolQuests[name]
	if !ok {
		questapi.WriteError(w, http.StatusNotFound, "unknown_tool", fmt.Sprintf("unknown tool %q", name))
		return
	}
	owner, err := questapi.Owner(r, h.config.DefaultOwner)
	if err != nil {
		questapi.WriteError(w, http.StatusBadRequest, "invalid_owner", err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxToolBody)
	result, err := h.call(r, name)
	if err != nil {
		if errors.Is(err, errInvalidInput) {
			questapi.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		h.config.Logger.Error("tool call failed", "tool", name, "error", err)
		questapi.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if h.ledgers != nil {
		res, err := h.ledgers.For(owner).Complete(r.Context(), questID)
		switch {
		case err != nil:
			h.config.Logger.Warn("quest completion failed", "owner", owner, "quest", questID, "error", err)
		case res.Awarded:
			h.config.Logger.Info("quest completed", "owner", owner, "quest", questID, "xp", res.Quest.XP, "tool", name)
		}
	}

	questapi.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) call(r *http.Request, name string) (any, error) {
	switch name {
	case ToolAnalyzeResume:
		var in analyzeResumeInput
		if err := decodeInput(r, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.ResumeText) == "" {
			return nil, fmt.Errorf("%w: resumeText is required", errInvalidInput)
		}
		return h.analyzer.Analyze(r.Context(), in.ResumeText)

	case ToolGetJobRequirements:
		var in jobRequirementsInput
		if err := decodeInput(r, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.TargetRole) == "" {
			return nil, fmt.Errorf("%w: targetRole is required", errInvalidInput)
		}
		return GetJobRequirements(in.TargetRole, in.Location), nil

	case ToolGetLearningResources:
		var in learningResourcesInput
		if err := decodeInput(r, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Skill) == "" {
			return nil, fmt.Errorf("%w: skill is required", errInvalidInput)
		}
		switch in.Level {
		case "":
			in.Level = "intermediate"
		case "beginner", "intermediate", "advanced":
		default:
			return nil, fmt.Errorf("%w: level must be beginner, intermediate or advanced", errInvalidInput)
		}
		return GetLearningResources(in.Skill, in.Level), nil
	}
	return nil, fmt.Errorf("%w: unknown tool %q", errInvalidInput, name)
}

func decodeInput(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	return nil
}
