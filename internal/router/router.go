package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/dietapi/internal/auth"
	"github.com/patric-chuzhbe/dietapi/internal/authenticator"
	"github.com/patric-chuzhbe/dietapi/internal/gzippedhttp"
	"github.com/patric-chuzhbe/dietapi/internal/ipchecker"
	"github.com/patric-chuzhbe/dietapi/internal/logger"
	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/service"
)

type storage interface {
	Ping(ctx context.Context) error
}

var validate = validator.New()

// Router bundles the HTTP handlers with their collaborators: the storage
// health view, the session authenticator, the trusted-subnet checker and the
// domain service.
type Router struct {
	db        storage
	auth      authenticator.Authenticator
	ipChecker *ipchecker.IPChecker
	service   *service.Service
}

// New wires the route table: the public registration and health endpoints,
// the session-protected meal and account endpoints, and the subnet-gated
// stats endpoint.
func New(
	db storage,
	theAuth authenticator.Authenticator,
	ipChecker *ipchecker.IPChecker,
	theService *service.Service,
) *chi.Mux {
	theRouter := &Router{
		db:        db,
		auth:      theAuth,
		ipChecker: ipChecker,
		service:   theService,
	}

	mux := chi.NewRouter()
	mux.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UnzipJSONRequest,
		gzippedhttp.ZipResponse,
	)

	mux.Post(`/users`, theRouter.PostUsers)
	mux.Get(`/ping`, theRouter.GetPing)
	mux.Get(`/internal/stats`, theRouter.GetInternalstats)

	mux.Group(func(authenticated chi.Router) {
		authenticated.Use(theAuth.AuthenticateUser)

		authenticated.Post(`/meals`, theRouter.PostMeals)
		authenticated.Post(`/meals/batch`, theRouter.PostMealsbatch)
		authenticated.Get(`/meals`, theRouter.GetMeals)
		authenticated.Get(`/meals/summary`, theRouter.GetMealssummary)
		authenticated.Get(`/meals/{mealID}`, theRouter.GetMealsmealid)
		authenticated.Put(`/meals/{mealID}`, theRouter.PutMealsmealid)
		authenticated.Delete(`/meals/{mealID}`, theRouter.DeleteMealsmealid)
		authenticated.Delete(`/meals`, theRouter.DeleteMeals)
		authenticated.Get(`/users/metrics`, theRouter.GetUsersmetrics)
		authenticated.Get(`/users/summary`, theRouter.GetUserssummary)
		authenticated.Delete(`/users`, theRouter.DeleteUsers)
	})

	return mux
}

// PostUsers registers a new account and issues the session cookie.
// A session already bound to an existing user is rejected with a conflict.
func (rt *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var registerRequest models.RegisterUserRequest
	if err := json.NewDecoder(request.Body).Decode(&registerRequest); err != nil {
		logger.Log.Debugln("cannot decode request JSON body:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "cannot decode request JSON body")
		return
	}

	if err := validate.Struct(registerRequest); err != nil {
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sessionOwner, err := rt.auth.ResolveUser(request)
	if err != nil {
		logger.Log.Debugln("error while resolving the session owner:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while resolving the session owner")
		return
	}
	if sessionOwner.ID != "" {
		writeJSONError(response, http.StatusConflict, service.ErrSessionAlreadyBound.Error())
		return
	}

	createdUser, err := rt.service.RegisterUser(request.Context(), registerRequest)
	if errors.Is(err, service.ErrEmailAlreadyTaken) || errors.Is(err, service.ErrSessionAlreadyBound) {
		writeJSONError(response, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logger.Log.Debugln("error while registering the user:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while registering the user")
		return
	}

	rt.auth.IssueSessionCookie(response, createdUser.SessionToken)
	writeJSONResponse(response, http.StatusCreated, models.UserResponse{
		ID:        createdUser.ID,
		Name:      createdUser.Name,
		Email:     createdUser.Email,
		Address:   createdUser.Address,
		Weight:    createdUser.Weight,
		Height:    createdUser.Height,
		CreatedAt: createdUser.CreatedAt,
	})
}

// GetPing reports storage health.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.db.Ping(request.Context()); err != nil {
		logger.Log.Debugln("storage ping failed:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "storage is unavailable")
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (rt *Router) PostMeals(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	var mealRequest models.MealRequest
	if err := json.NewDecoder(request.Body).Decode(&mealRequest); err != nil {
		logger.Log.Debugln("cannot decode request JSON body:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "cannot decode request JSON body")
		return
	}

	if err := validate.Struct(mealRequest); err != nil {
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	createdMeal, err := rt.service.CreateMeal(request.Context(), userID, mealRequest)
	if err != nil {
		logger.Log.Debugln("error while storing the meal:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while storing the meal")
		return
	}

	writeJSONResponse(response, http.StatusCreated, mealToResponse(createdMeal))
}

// PostMealsbatch imports a whole meal history in one transaction.
func (rt *Router) PostMealsbatch(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	var importRequest models.MealImportRequest
	if err := json.NewDecoder(request.Body).Decode(&importRequest); err != nil {
		logger.Log.Debugln("cannot decode request JSON body:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "cannot decode request JSON body")
		return
	}

	for _, item := range importRequest {
		if err := validate.Struct(item); err != nil {
			writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	importedMeals, err := rt.service.ImportMeals(request.Context(), userID, importRequest)
	if err != nil {
		logger.Log.Debugln("error while importing the meals:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while importing the meals")
		return
	}

	writeJSONResponse(response, http.StatusCreated, mealsToResponse(importedMeals))
}

func (rt *Router) GetMeals(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	meals, err := rt.service.GetUserMeals(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("error while fetching the user meals:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while fetching the user meals")
		return
	}

	writeJSONResponse(response, http.StatusOK, mealsToResponse(meals))
}

func (rt *Router) GetMealsmealid(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	theMeal, err := rt.service.GetMeal(request.Context(), userID, chi.URLParam(request, "mealID"))
	if errors.Is(err, service.ErrMealNotFound) {
		writeJSONError(response, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Log.Debugln("error while fetching the meal:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while fetching the meal")
		return
	}

	writeJSONResponse(response, http.StatusOK, mealToResponse(theMeal))
}

func (rt *Router) PutMealsmealid(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	var mealRequest models.MealRequest
	if err := json.NewDecoder(request.Body).Decode(&mealRequest); err != nil {
		logger.Log.Debugln("cannot decode request JSON body:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "cannot decode request JSON body")
		return
	}

	if err := validate.Struct(mealRequest); err != nil {
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updatedMeal, err := rt.service.UpdateMeal(
		request.Context(),
		userID,
		chi.URLParam(request, "mealID"),
		mealRequest,
	)
	if errors.Is(err, service.ErrMealNotFound) {
		writeJSONError(response, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Log.Debugln("error while updating the meal:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while updating the meal")
		return
	}

	writeJSONResponse(response, http.StatusOK, mealToResponse(updatedMeal))
}

func (rt *Router) DeleteMealsmealid(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	err := rt.service.DeleteMeal(request.Context(), userID, chi.URLParam(request, "mealID"))
	if errors.Is(err, service.ErrMealNotFound) {
		writeJSONError(response, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Log.Debugln("error while deleting the meal:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while deleting the meal")
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// DeleteMeals accepts a list of meal IDs and enqueues their deletion for
// background processing.
func (rt *Router) DeleteMeals(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	var deleteRequest models.DeleteMealsRequest
	if err := json.NewDecoder(request.Body).Decode(&deleteRequest); err != nil {
		logger.Log.Debugln("cannot decode request JSON body:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "cannot decode request JSON body")
		return
	}

	rt.service.DeleteMealsAsync(request.Context(), userID, deleteRequest)

	response.WriteHeader(http.StatusAccepted)
}

// GetUsersmetrics serves the aggregate report over the user's whole meal
// history. A user without meals gets 404, which is distinct from all-zero
// counters.
func (rt *Router) GetUsersmetrics(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	report, err := rt.service.GetUserMetrics(request.Context(), userID)
	if errors.Is(err, service.ErrNoMeals) {
		writeJSONError(response, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Log.Debugln("error while computing the user metrics:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while computing the user metrics")
		return
	}

	writeJSONResponse(response, http.StatusOK, report)
}

func (rt *Router) GetMealssummary(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	mealsSummary, err := rt.service.GetMealsSummary(request.Context(), userID)
	if err != nil {
		logger.Log.Debugln("error while counting the user meals:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while counting the user meals")
		return
	}

	writeJSONResponse(response, http.StatusOK, mealsSummary)
}

func (rt *Router) GetUserssummary(response http.ResponseWriter, request *http.Request) {
	_, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	usersSummary, err := rt.service.GetUsersSummary(request.Context())
	if err != nil {
		logger.Log.Debugln("error while counting the registered users:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while counting the registered users")
		return
	}

	writeJSONResponse(response, http.StatusOK, usersSummary)
}

// DeleteUsers removes the account with its whole meal history and expires
// the session cookie.
func (rt *Router) DeleteUsers(response http.ResponseWriter, request *http.Request) {
	userID, ok := getUserIDFromContext(request)
	if !ok {
		writeJSONError(response, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := rt.service.DeleteUser(request.Context(), userID); err != nil {
		logger.Log.Debugln("error while deleting the user:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while deleting the user")
		return
	}

	rt.auth.ExpireSessionCookie(response)
	response.WriteHeader(http.StatusNoContent)
}

// GetInternalstats serves global counters to clients from the trusted
// subnet only.
func (rt *Router) GetInternalstats(response http.ResponseWriter, request *http.Request) {
	if rt.ipChecker.IsTrustedSubnetEmpty() {
		writeJSONError(response, http.StatusForbidden, "access denied")
		return
	}

	fromTrustedSubnet, err := rt.ipChecker.IsRequestFromTrustedSubnet(request)
	if err != nil {
		logger.Log.Debugln("error while extracting the client IP:", zap.Error(err))
		writeJSONError(response, http.StatusForbidden, "access denied")
		return
	}
	if !fromTrustedSubnet {
		writeJSONError(response, http.StatusForbidden, "access denied")
		return
	}

	stats, err := rt.service.GetInternalStats(request.Context())
	if err != nil {
		logger.Log.Debugln("error while fetching the internal stats:", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, "error while fetching the internal stats")
		return
	}

	writeJSONResponse(response, http.StatusOK, stats)
}

func getUserIDFromContext(request *http.Request) (string, bool) {
	userID, ok := request.Context().Value(auth.UserIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

func writeJSONResponse(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("error while encoding the response JSON body:", zap.Error(err))
	}
}

func writeJSONError(response http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(response, statusCode, models.ErrorResponse{Error: message})
}

func mealToResponse(theMeal *meal.Meal) models.MealResponse {
	return models.MealResponse{
		ID:          theMeal.ID,
		Name:        theMeal.Name,
		Description: theMeal.Description,
		IsOnTheDiet: theMeal.IsOnTheDiet,
		CreatedAt:   theMeal.CreatedAt,
	}
}

func mealsToResponse(meals []meal.Meal) models.UserMeals {
	result := make(models.UserMeals, 0, len(meals))
	for i := range meals {
		result = append(result, mealToResponse(&meals[i]))
	}
	return result
}
