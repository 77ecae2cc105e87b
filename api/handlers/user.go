package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/models"
)

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	RDB    databases.PasswordResetDatabase
	Config config.Config
}

type userCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserCreateHandler registers a new user. Emails are stored lowercase so
// login lookups are case-insensitive.
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || email == "" || req.Password == "" {
		config.ErrorStatus("name, email and password are required", http.StatusBadRequest, w,
			fmt.Errorf("missing registration fields"))
		return
	}
	if len(req.Password) < 8 {
		config.ErrorStatus("password must be at least 8 characters", http.StatusBadRequest, w,
			fmt.Errorf("password too short"))
		return
	}

	if existing, err := u.DB.FindOne(r.Context(), bson.M{"email": email}); err == nil && existing != nil {
		config.ErrorStatus("email is already registered", http.StatusConflict, w,
			fmt.Errorf("duplicate email"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	newUser := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     email,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := u.DB.InsertOne(context.TODO(), newUser); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user created successfully",
		"id":      newUser.ID.Hex(),
	})
}

// UserCheckEmailHandler reports whether an email is already registered, so
// the signup form can validate before submitting
func (u User) UserCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("email")))
	if email == "" {
		config.ErrorStatus("email query param is required", http.StatusBadRequest, w, fmt.Errorf("missing email"))
		return
	}

	exists := false
	if user, err := u.DB.FindOne(r.Context(), bson.M{"email": email}); err == nil && user != nil {
		exists = true
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"exists": exists})
}

// UserHandler returns a user's public profile
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := u.DB.FindOne(context.Background(), bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type userUpdateRequest struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
}

// UpdateUserByIDHandler lets a user change their own display name and photo
func (u User) UpdateUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if api.UserIDFromContext(r.Context()) != userID {
		config.ErrorStatus("cannot update another user's profile", http.StatusForbidden, w, errNotOwner)
		return
	}

	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.PhotoURL != "" {
		set["photoUrl"] = req.PhotoURL
	}

	if err := u.DB.UpdateOne(context.TODO(), bson.M{"_id": uID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "user updated successfully"}`))
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler emails a reset link when the address is registered.
// The response is the same either way so the endpoint cannot be used to probe
// for accounts.
func (u User) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		config.ErrorStatus("email is required", http.StatusBadRequest, w, fmt.Errorf("missing email"))
		return
	}

	if user, err := u.DB.FindOne(r.Context(), bson.M{"email": email}); err == nil && user != nil {
		plain, hashHex, genErr := generateResetToken()
		if genErr == nil {
			_, _ = u.RDB.InsertOne(r.Context(), models.PasswordReset{
				UserID:    user.ID,
				TokenHash: hashHex,
				ExpiresAt: time.Now().Add(1 * time.Hour),
				CreatedAt: time.Now(),
			})
			if sendErr := u.sendResetEmail(email, buildResetLink(u.Config.BaseURL, plain)); sendErr != nil {
				zap.S().Errorw("failed to send reset email", "error", sendErr)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "if that email exists, a reset link has been sent"}`))
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPasswordHandler sets a new password given a valid, unused, unexpired
// reset token
func (u User) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" || req.Password == "" {
		config.ErrorStatus("token and password are required", http.StatusBadRequest, w,
			fmt.Errorf("missing reset fields"))
		return
	}
	if len(req.Password) < 8 {
		config.ErrorStatus("password must be at least 8 characters", http.StatusBadRequest, w,
			fmt.Errorf("password too short"))
		return
	}

	reset, err := u.RDB.FindOne(r.Context(), bson.M{
		"tokenHash": hashToken(token),
		"usedAt":    bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": time.Now()},
	})
	if err != nil {
		config.ErrorStatus("invalid or expired token", http.StatusBadRequest, w, err)
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	err = u.DB.UpdateOne(context.TODO(),
		bson.M{"_id": reset.UserID},
		bson.M{"$set": bson.M{"password": string(newHash), "updatedAt": primitive.NewDateTimeFromTime(time.Now())}},
	)
	if err != nil {
		config.ErrorStatus("failed to update password", http.StatusInternalServerError, w, err)
		return
	}

	if err := u.RDB.UpdateOne(context.TODO(),
		bson.M{"_id": reset.ID},
		bson.M{"$set": bson.M{"usedAt": time.Now()}},
	); err != nil {
		zap.S().Errorw("failed to mark reset token used", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "password updated"}`))
}

func generateResetToken() (plain string, hashHex string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	pln := hex.EncodeToString(b)
	return pln, hashToken(pln), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func buildResetLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + token
}

func (u User) sendResetEmail(toEmail, resetLink string) error {
	from := mail.NewEmail("CampusFind", "no-reply@campusfind.app")
	subject := "CampusFind Password Reset"
	to := mail.NewEmail("", toEmail)
	plain := "Reset your password using this link: " + resetLink
	html := "<p>Reset your password using <a href=\"" + resetLink + "\">this link</a>. It expires in one hour.</p>"
	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(u.Config.SendgridAPIKey)
	_, err := client.Send(msg)
	return err
}
