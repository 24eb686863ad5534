package log

import (
	"errors"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	STDOUT     bool   `json:"stdout" yaml:"stdout" toml:"stdout"`
	File       string `json:"file" yaml:"file" toml:"file"`                      // log output file path, empty means no log file
	Level      int8   `json:"level" yaml:"level" toml:"level"`                   // debug -1 | info 0 (default) | warn 1 | error 2
	MaxAge     int    `json:"max_age" yaml:"max_age" toml:"max_age"`             // days to keep rotated files, 0 keeps all
	MaxSize    int    `json:"max_size" yaml:"max_size" toml:"max_size"`          // megabytes per file
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"` // rotated files to keep
	Compress   bool   `json:"compress" yaml:"compress" toml:"compress"`
	JsonFormat bool   `json:"json" yaml:"json" toml:"json"`
}

// Logger and Sugar discard everything until Init is called.
var (
	Logger = zap.NewNop()
	Sugar  = Logger.Sugar()
)

func Init(config Config) error {

	var wss []zapcore.WriteSyncer
	if len(config.File) > 0 {
		hook := lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSize, // megabytes
			MaxAge:     config.MaxAge,
			MaxBackups: config.MaxBackups,
			LocalTime:  false,
			Compress:   config.Compress,
		}
		wss = append(wss, zapcore.AddSync(&hook))
	}

	if config.STDOUT {
		wss = append(wss, zapcore.AddSync(os.Stdout))
	}

	if len(wss) == 0 {
		return errors.New("write syncer needed")
	}

	cfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var enc zapcore.Encoder
	if config.JsonFormat {
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	switch zapcore.Level(config.Level) {
	case zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel:
	default:
		config.Level = int8(zapcore.InfoLevel)
	}

	Logger = zap.New(zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(wss...), zapcore.Level(config.Level)), zap.AddCaller())
	Sugar = Logger.Sugar()

	return nil
}

func InitDevelop() {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	Logger = l
	Sugar = l.Sugar()
}

// Named returns a child of Sugar tagged with a listener name.
func Named(name string) *zap.SugaredLogger {
	return Sugar.Named(name)
}

// Dump writes a hexdump of data at info level, framed by separator lines.
func Dump(logger *zap.SugaredLogger, data []byte) {
	logger.Info(separator)
	for _, line := range Hexdump(data) {
		logger.Info(line)
	}
	logger.Info(separator)
}
