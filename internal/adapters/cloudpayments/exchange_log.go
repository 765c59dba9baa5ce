package cloudpayments

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

const exchangeLogFile = "payment/cloudpaymentsSend.log"

// NewExchangeLogger opens the file logger that records raw gateway exchanges.
func NewExchangeLogger(logDir string) (*zap.Logger, error) {
	path := filepath.Join(logDir, exchangeLogFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create exchange log dir: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         "console",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// logExchange writes the request and response the way operators grep for them.
func logExchange(log *zap.Logger, url string, req *ports.AuthorizationRequest, httpStatus int, raw []byte) {
	if log == nil {
		return
	}
	log.Info("Sent to: " + url + "\n" + redactedJSON(req))
	log.Info(fmt.Sprintf("Received: http_code: %d; response: %s", httpStatus, raw))
}

func redactedJSON(req *ports.AuthorizationRequest) string {
	clone := *req
	if clone.Token != "" {
		clone.Token = "***"
	}
	b, err := json.Marshal(clone)
	if err != nil {
		return "<unencodable request>"
	}
	return string(b)
}
