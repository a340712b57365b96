package receiver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/apierror"
	"github.com/Kotaro7750/console-notifier/notification"
	"github.com/Kotaro7750/console-notifier/server"
)

const maxRequestBody = 1 << 20

func HTTPReceiverBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Command], error) {
	listenAddr, err := abstraction.StringProperty(properties, "listenAddress", true)
	if err != nil {
		return nil, err
	}

	allowedOrigins, err := abstraction.StringListProperty(properties, "allowedOrigins")
	if err != nil {
		return nil, err
	}

	return NewReceiver(&HTTPReceiverImpl{
		id:             id,
		listenAddr:     listenAddr,
		allowedOrigins: allowedOrigins,
		logger:         nil,
	}), nil
}

type HTTPReceiverImpl struct {
	id             string
	logger         *slog.Logger
	listenAddr     string
	allowedOrigins []string
}

func (hri *HTTPReceiverImpl) GetId() string {
	return hri.id
}

func (hri *HTTPReceiverImpl) GetLogger() *slog.Logger {
	return hri.logger
}

func (hri *HTTPReceiverImpl) SetLogger(logger *slog.Logger) {
	hri.logger = logger
}

func (hri *HTTPReceiverImpl) Start(outputCh chan<- notification.Command, done <-chan struct{}) <-chan error {
	handler := server.CORS(hri.allowedOrigins).Handler(hri.newServeMux(outputCh))
	return server.Run(hri.listenAddr, handler, done)
}

func (hri *HTTPReceiverImpl) newServeMux(outputCh chan<- notification.Command) *http.ServeMux {
	serveMux := http.NewServeMux()

	serveMux.HandleFunc("POST /notifications", func(w http.ResponseWriter, r *http.Request) {
		var d notification.Descriptor
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&d); err != nil {
			http.Error(w, "Error decoding JSON", http.StatusBadRequest)
			return
		}
		if err := d.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		hri.forward(w, r, outputCh, notification.Add(d))
	})

	serveMux.HandleFunc("DELETE /notifications/{id}", func(w http.ResponseWriter, r *http.Request) {
		hri.forward(w, r, outputCh, notification.Remove(r.PathValue("id")))
	})

	serveMux.HandleFunc("POST /errors", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "Error reading body", http.StatusBadRequest)
			return
		}

		hri.forward(w, r, outputCh, notification.Fail(apierror.ClassifyJSON(body)))
	})

	serveMux.HandleFunc("POST /errors/length-exceeded", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MaxLength int `json:"maxLength"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
			http.Error(w, "Error decoding JSON", http.StatusBadRequest)
			return
		}
		if req.MaxLength <= 0 {
			http.Error(w, "maxLength should be positive", http.StatusBadRequest)
			return
		}

		hri.forward(w, r, outputCh, notification.LengthExceeded(req.MaxLength))
	})

	serveMux.HandleFunc("PUT /error-message", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
			http.Error(w, "Error decoding JSON", http.StatusBadRequest)
			return
		}

		hri.forward(w, r, outputCh, notification.SetErrorMessage(req.Message))
	})

	serveMux.HandleFunc("DELETE /error-message", func(w http.ResponseWriter, r *http.Request) {
		hri.forward(w, r, outputCh, notification.ClearErrorMessage())
	})

	return serveMux
}

func (hri *HTTPReceiverImpl) forward(w http.ResponseWriter, r *http.Request, outputCh chan<- notification.Command, cmd notification.Command) {
	select {
	case outputCh <- cmd:
		w.WriteHeader(http.StatusAccepted)
	case <-r.Context().Done():
		hri.GetLogger().Warn("Request cancelled before command was accepted", "op", cmd.Op.String())
		http.Error(w, fmt.Sprintf("command %s was not accepted", cmd.Op), http.StatusServiceUnavailable)
	}
}
