package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// OK - «успешный» ответ с обёрткой.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{"data": data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, envelope{"data": data})
}

// Error - унифицированная ошибка (message + request_id).
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	body := envelope{"message": msg}
	if rid, ok := FromContext(ctx); ok {
		body["request_id"] = rid
	}
	JSON(w, status, envelope{"error": body})
}

// Decode разбирает ответ API в dst (поле data) или возвращает текст ошибки.
func Decode(body []byte, dst any) (errMsg string, err error) {
	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", err
	}
	if env.Error != nil {
		return env.Error.Message, nil
	}
	if dst == nil || len(env.Data) == 0 {
		return "", nil
	}
	return "", json.Unmarshal(env.Data, dst)
}

// MaxBodyBytes - потолок тела JSON-запроса по умолчанию.
const MaxBodyBytes int64 = 64 << 10

// ReadJSON читает тело не больше limit байт (<=0 -> MaxBodyBytes) в dst.
// Возвращает статус для ответа: 413 при превышении, 400 при битом JSON.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) (int, error) {
	if limit <= 0 {
		limit = MaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}
