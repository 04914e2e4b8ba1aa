package config

const (
	defaultDownloadDir     = "~/.local/share/slowjams/downloads"
	defaultOutputDir       = "~/slowjams"
	defaultTempDir         = "~/.local/share/slowjams/tmp"
	defaultLogDir          = "~/.local/share/slowjams/logs"
	defaultStateDir        = "~/.local/share/slowjams/state"
	defaultFFmpeg          = "ffmpeg"
	defaultFFprobe         = "ffprobe"
	defaultYtDlp           = "yt-dlp"
	defaultDownloadTimeout = 1800
	defaultConvertTimeout  = 900
	defaultProcessTimeout  = 900
	defaultWorkers         = 2
	defaultPopTimeoutMS    = 500
	defaultStopTimeout     = 30
	defaultNtfyTimeout     = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults. Processing
// defaults mirror the slow-jam preset.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			OutputDir:   defaultOutputDir,
			TempDir:     defaultTempDir,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
		},
		Tools: Tools{
			FFmpeg:          defaultFFmpeg,
			FFprobe:         defaultFFprobe,
			YtDlp:           defaultYtDlp,
			DownloadTimeout: defaultDownloadTimeout,
			ConvertTimeout:  defaultConvertTimeout,
			ProcessTimeout:  defaultProcessTimeout,
		},
		Queue: Queue{
			Workers:     defaultWorkers,
			PopTimeout:  defaultPopTimeoutMS,
			StopTimeout: defaultStopTimeout,
		},
		Processing: Processing{
			OutputFormat:    "mp3",
			OutputBitrate:   "320k",
			NormalizeOutput: true,
			SlowFactor:      0.8,
			PreservePitch:   true,
			ReverbEnabled:   true,
			ReverbRoomSize:  0.5,
			ReverbWetLevel:  0.3,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			TaskCompleted:  true,
			TaskFailed:     true,
			QueueDrained:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
