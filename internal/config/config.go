package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is threaded into every component by value at process start;
// nothing re-reads the environment after Load returns.
type Config struct {
	// OpenAI (chat-completion planner + ad-copy generation)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Remote job-graph service (spec 4.8/4.10)
	ComfyUIHost     string
	ComfyUIPort     int
	ComfyUIProtocol string

	// Workflow template paths (spec 4.8)
	WorkflowImageEdit    string
	WorkflowVoiceClone   string
	WorkflowDigitalHuman string

	// Video duration bounds and insertion edge-avoid bounds (spec 4.2, 4.3)
	MinVideoDuration    float64
	MaxVideoDuration    float64
	InsertionAvoidStart float64
	InsertionAvoidEnd   float64

	// Ad-copy length bounds (spec 4.7)
	AdScriptMinLength int
	AdScriptMaxLength int

	// Temp workspace policy (spec 3, 5, 9)
	KeepTempFilesOnError bool
	TempFilesTTLSeconds  int

	// Paths
	CacheDir      string
	OutputDir     string
	AdCatalogPath string

	// Main-speaker advisory-check enforcement (Open Question decision, DESIGN.md)
	EnforceCenterCheck   bool
	EnforceVarianceCheck bool

	// Planner candidate count (spec 4.3)
	NumPlanCandidates int

	// Remote job-graph stage policy (spec 4.8)
	StagePollIntervalSeconds   int
	ImageCleanupTimeoutSeconds int
	VoiceCloneTimeoutSeconds   int
	DigitalHumanTimeoutSeconds int
	DigitalHumanFPS            int

	// External local-capability adapters (spec 1's ASR/source-separation/
	// face-detector collaborators, wired as subprocess binaries)
	WhisperBinPath      string
	WhisperModel        string
	DemucsBinPath       string
	DemucsModel         string
	FaceDetectorBinPath string

	// Face-detection invariant (spec 4.4, 35)
	FaceDetectorConfidenceThreshold float64
	FaceDetectorMinFaceSizePx       int
}

// Load reads .env (if present) then the process environment, applying the
// defaults used throughout the retrieval pack's settings modules.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		ComfyUIHost:     getEnv("COMFYUI_HOST", "127.0.0.1"),
		ComfyUIPort:     getEnvInt("COMFYUI_PORT", 8188),
		ComfyUIProtocol: getEnv("COMFYUI_PROTOCOL", "http"),

		WorkflowImageEdit:    getEnv("WORKFLOW_IMAGE_EDIT", "workflows/image_edit.json"),
		WorkflowVoiceClone:   getEnv("WORKFLOW_VOICE_CLONE", "workflows/voice_clone.json"),
		WorkflowDigitalHuman: getEnv("WORKFLOW_DIGITAL_HUMAN", "workflows/digital_human.json"),

		MinVideoDuration:    getEnvFloat("MIN_VIDEO_DURATION", 15.0),
		MaxVideoDuration:    getEnvFloat("MAX_VIDEO_DURATION", 300.0),
		InsertionAvoidStart: getEnvFloat("INSERTION_POINT_AVOID_START", 3.0),
		InsertionAvoidEnd:   getEnvFloat("INSERTION_POINT_AVOID_END", 5.0),

		AdScriptMinLength: getEnvInt("AD_SCRIPT_MIN_LENGTH", 15),
		AdScriptMaxLength: getEnvInt("AD_SCRIPT_MAX_LENGTH", 30),

		KeepTempFilesOnError: getEnvBool("KEEP_TEMP_FILES_ON_ERROR", true),
		TempFilesTTLSeconds:  getEnvInt("TEMP_FILES_TTL", 86400),

		CacheDir:      getEnv("CACHE_DIR", "cache"),
		OutputDir:     getEnv("OUTPUT_DIR", "output"),
		AdCatalogPath: getEnv("AD_CATALOG_PATH", "config/ads.json"),

		EnforceCenterCheck:   getEnvBool("ENFORCE_CENTER_CHECK", false),
		EnforceVarianceCheck: getEnvBool("ENFORCE_VARIANCE_CHECK", false),

		NumPlanCandidates: getEnvInt("NUM_PLAN_CANDIDATES", 3),

		StagePollIntervalSeconds:   getEnvInt("STAGE_POLL_INTERVAL_SECONDS", 2),
		ImageCleanupTimeoutSeconds: getEnvInt("IMAGE_CLEANUP_TIMEOUT_SECONDS", 300),
		VoiceCloneTimeoutSeconds:   getEnvInt("VOICE_CLONE_TIMEOUT_SECONDS", 300),
		DigitalHumanTimeoutSeconds: getEnvInt("DIGITAL_HUMAN_TIMEOUT_SECONDS", 3600),
		DigitalHumanFPS:            getEnvInt("DIGITAL_HUMAN_FPS", 25),

		WhisperBinPath:      getEnv("WHISPER_BIN_PATH", "whisper"),
		WhisperModel:        getEnv("WHISPER_MODEL", "base"),
		DemucsBinPath:       getEnv("DEMUCS_BIN_PATH", "demucs"),
		DemucsModel:         getEnv("DEMUCS_MODEL", "htdemucs"),
		FaceDetectorBinPath: getEnv("FACE_DETECTOR_BIN_PATH", ""),

		FaceDetectorConfidenceThreshold: getEnvFloat("FACE_DETECTOR_CONFIDENCE_THRESHOLD", 0.9),
		FaceDetectorMinFaceSizePx:       getEnvInt("FACE_DETECTOR_MIN_FACE_SIZE_PX", 20),
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if cfg.MinVideoDuration <= 0 || cfg.MaxVideoDuration <= cfg.MinVideoDuration {
		return nil, fmt.Errorf("invalid video duration bounds: min=%v max=%v", cfg.MinVideoDuration, cfg.MaxVideoDuration)
	}

	if cfg.AdScriptMinLength <= 0 || cfg.AdScriptMaxLength < cfg.AdScriptMinLength {
		return nil, fmt.Errorf("invalid ad-copy length bounds: min=%d max=%d", cfg.AdScriptMinLength, cfg.AdScriptMaxLength)
	}

	return cfg, nil
}

// BaseURL returns the remote job-graph service's full base URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.ComfyUIProtocol, c.ComfyUIHost, c.ComfyUIPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
