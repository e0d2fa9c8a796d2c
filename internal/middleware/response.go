package middleware

import (
	"net/http"

	"github.com/uran124/avito-relay/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
