package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/internal/domain"
	"github.com/buffapp/amazon-ads-api/internal/usecases/authenticating"
	"github.com/buffapp/amazon-ads-api/internal/usecases/connecting"
	"github.com/buffapp/amazon-ads-api/pkg/apiErrors"
	"github.com/buffapp/amazon-ads-api/pkg/middleware"
)

// AuthorizeConnection devolve a URL de consentimento da Amazon. O state
// carrega o token da sessão para o callback identificar o usuário
func AuthorizeConnection(service connecting.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
			return
		}

		state := r.URL.Query().Get("state")
		if state == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Parâmetro state é obrigatório", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"authorization_url": service.AuthorizationURL(state),
		})
	}
}

// ConnectionCallback recebe o redirecionamento da Amazon após o consentimento.
// O state é o token da sessão que originou a autorização
func ConnectionCallback(service connecting.Connector, authenticator authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if code == "" || state == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Parâmetros code e state são obrigatórios", nil)
			return
		}

		claims, err := authenticator.ValidateToken(state)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "State inválido ou expirado", nil)
			return
		}

		userID := strconv.Itoa(claims.UserID)

		connections, err := service.CompleteConnection(r.Context(), userID, code)
		if err != nil {
			logrus.WithError(err).Error("Erro ao concluir conexão Amazon Ads")
			handleConnectionError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(connections)
	}
}

// ListConnections retorna as conexões do usuário logado
func ListConnections(service connecting.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
			return
		}

		connections, err := service.ListConnections(r.Context(), strconv.Itoa(userClaims.UserID))
		if err != nil {
			logrus.WithError(err).Error("Erro ao listar conexões")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar conexões", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(connections)
	}
}

// DisconnectConnection remove uma conexão do usuário logado
func DisconnectConnection(service connecting.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims)
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
			return
		}

		connectionID := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if connectionID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "ID da conexão não informado", nil)
			return
		}

		err := service.Disconnect(r.Context(), strconv.Itoa(userClaims.UserID), connectionID)
		if err != nil {
			handleConnectionError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleConnectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, connecting.ErrConnectionNotFound):
		apiErrors.WriteError(w, apiErrors.ErrConnectionNotFound, "Conexão não encontrada", nil)

	case errors.Is(err, connecting.ErrNotOwner):
		apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Conexão pertence a outro usuário", nil)

	case errors.Is(err, connecting.ErrNoProfiles):
		apiErrors.WriteError(w, apiErrors.ErrExternalService, "Nenhum profile de anunciante disponível", nil)

	default:
		apiErrors.WriteError(w, apiErrors.ErrExternalService, "Erro ao comunicar com a Amazon Ads", nil)
	}
}
