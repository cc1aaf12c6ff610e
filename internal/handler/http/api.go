package http

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/service"
	"github.com/windfall/vntutor_service/pkg/response"
)

// DefaultMaxAudioBytes matches the OpenAI audio upload limit.
const DefaultMaxAudioBytes int64 = 25 << 20

// multipart parts beyond this stay on disk instead of memory
const multipartMemory = 8 << 20

// maxJSONBytes bounds JSON request bodies. Texts are further limited to
// service.MaxTextRunes.
const maxJSONBytes = 64 << 10

// handleError writes AppErrors with their mapped status and hides anything
// else behind a generic 500. The cause is logged, never returned.
func handleError(log zerolog.Logger, w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		status := appErr.HTTPStatus()
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).Str("code", string(appErr.Code)).Msg("Request failed")
		response.AppError(w, appErr)
		return
	}
	log.Error().Err(err).Msg("Internal server error")
	response.Error(w, http.StatusInternalServerError, errors.Internal("Lỗi hệ thống, vui lòng thử lại sau"))
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.Validation("Dữ liệu gửi lên quá lớn")
		}
		return errors.Validation("Dữ liệu gửi lên không hợp lệ")
	}
	return nil
}

// readAudioForm parses a multipart request carrying either an "audio" file
// or an "audio_uri" field.
func readAudioForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (service.AudioRef, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return service.AudioRef{}, errors.Validation("Không đọc được dữ liệu gửi lên")
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return service.AudioRef{URI: strings.TrimSpace(r.FormValue("audio_uri"))}, nil
	}
	defer file.Close()

	if header.Size > maxBytes {
		return service.AudioRef{}, errors.Validation("Tệp âm thanh quá lớn")
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return service.AudioRef{}, errors.Validation("Không đọc được tệp âm thanh")
	}
	if int64(len(data)) > maxBytes {
		return service.AudioRef{}, errors.Validation("Tệp âm thanh quá lớn")
	}
	return service.AudioRef{Data: data}, nil
}

// formBool reads a "true"/"false" form value; anything unparsable is def.
func formBool(r *http.Request, key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return def
	}
	return v
}
