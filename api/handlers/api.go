package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/campusfind/lostfound-api/api"
	"github.com/campusfind/lostfound-api/api/scheduler"
	"github.com/campusfind/lostfound-api/config"
	"github.com/campusfind/lostfound-api/databases"
	"github.com/campusfind/lostfound-api/matcher"
	"github.com/campusfind/lostfound-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
	llm       matcher.LLM
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	jwtSecret := []byte(a.Config.JWTSecret)
	notificationHub := NewNotificationHub()
	chatHub := NewChatHub()

	itemDB := databases.NewItemDatabase(a.dbHelper)
	claimDB := databases.NewClaimDatabase(a.dbHelper)
	userDB := databases.NewUserDatabase(a.dbHelper)
	notificationDB := databases.NewNotificationDatabase(a.dbHelper)

	engine := matcher.NewEngine(itemDB, notificationDB, a.llm, notificationHub)

	u := User{DB: userDB, RDB: databases.NewPasswordResetDatabase(a.dbHelper), Config: a.Config}
	i := Item{DB: itemDB, UDB: userDB, Matcher: engine}
	c := Claim{DB: claimDB, IDB: itemDB, MDB: databases.NewClaimMessageDatabase(a.dbHelper), UDB: userDB, Hub: chatHub}
	cc := CommunityChat{DB: databases.NewCommunityMessageDatabase(a.dbHelper), UDB: userDB, Hub: chatHub}
	n := Notification{DB: notificationDB, Hub: notificationHub, JWTSecret: jwtSecret}
	ws := ChatSocket{Hub: chatHub, CDB: claimDB, JWTSecret: jwtSecret}
	tickets := WSTicket{DB: userDB, JWTSecret: jwtSecret}
	cloudinaryHandler := CloudinaryHandler{Config: a.Config}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", http.HandlerFunc(m.CreateToken)).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/ws-ticket", api.Middleware(http.HandlerFunc(tickets.IssueTicketHandler))).Methods("POST")

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/user/check-user", http.HandlerFunc(u.UserCheckEmailHandler)).Methods("GET")
	apiCreate.Handle("/user/forgot-password", http.HandlerFunc(u.ForgotPasswordHandler)).Methods("POST")
	apiCreate.Handle("/user/reset-password", http.HandlerFunc(u.ResetPasswordHandler)).Methods("POST")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UpdateUserByIDHandler))).Methods("PUT")

	apiCreate.Handle("/item", api.Middleware(http.HandlerFunc(i.CreateItemHandler))).Methods("POST")
	apiCreate.Handle("/item/{item_id}", api.Middleware(http.HandlerFunc(i.ItemByIDHandler))).Methods("GET")
	apiCreate.Handle("/item/{item_id}/claim", api.Middleware(http.HandlerFunc(c.InitiateClaimHandler))).Methods("POST")
	apiCreate.Handle("/items", api.Middleware(http.HandlerFunc(i.ItemsHandler))).Methods("GET")
	apiCreate.Handle("/items/map", api.Middleware(http.HandlerFunc(i.ItemsMapHandler))).Methods("GET")
	apiCreate.Handle("/items/user/{user_id}", api.Middleware(http.HandlerFunc(i.ItemsByUserIDHandler))).Methods("GET")

	apiCreate.Handle("/claim/{claim_id}", api.Middleware(http.HandlerFunc(c.ClaimByIDHandler))).Methods("GET")
	apiCreate.Handle("/claim/{claim_id}/resolve", api.Middleware(http.HandlerFunc(c.ResolveClaimHandler))).Methods("PUT")
	apiCreate.Handle("/claim/{claim_id}/messages", api.Middleware(http.HandlerFunc(c.ClaimMessagesHandler))).Methods("GET")
	apiCreate.Handle("/claim/{claim_id}/messages", api.Middleware(http.HandlerFunc(c.PostClaimMessageHandler))).Methods("POST")
	apiCreate.Handle("/claims/user/{user_id}", api.Middleware(http.HandlerFunc(c.ClaimsByUserIDHandler))).Methods("GET")

	apiCreate.Handle("/community-chat/messages", api.Middleware(http.HandlerFunc(cc.CommunityMessagesHandler))).Methods("GET")
	apiCreate.Handle("/community-chat/messages", api.Middleware(http.HandlerFunc(cc.PostCommunityMessageHandler))).Methods("POST")
	apiCreate.Handle("/community-chat/messages/{message_id}/reactions", api.Middleware(http.HandlerFunc(cc.AddReactionHandler))).Methods("POST")

	apiCreate.Handle("/users/{user_id}/notifications", api.Middleware(http.HandlerFunc(n.GetUserNotificationsHandler))).Methods("GET")
	apiCreate.Handle("/users/{user_id}/notifications/{notification_id}/read", api.Middleware(http.HandlerFunc(n.MarkNotificationAsReadHandler))).Methods("PUT")
	apiCreate.Handle("/users/{user_id}/notifications/{notification_id}", api.Middleware(http.HandlerFunc(n.DeleteNotificationHandler))).Methods("DELETE")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")
	apiCreate.Handle("/upload", api.Middleware(http.HandlerFunc(cloudinaryHandler.UploadHandler))).Methods("POST")

	// websocket endpoints authenticate with a short-lived ticket instead of
	// the Authorization header
	r.HandleFunc("/ws/notifications", n.NotificationsWebSocketHandler)
	r.HandleFunc("/ws/community-chat", ws.CommunityChatWebSocketHandler)
	r.HandleFunc("/ws/claim/{claim_id}", ws.ClaimChatWebSocketHandler)

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("lostfound-api has connected to the database")

	llm, err := matcher.NewGeminiLLM(a.Config.GeminiAPIKey, a.Config.GeminiModel)
	if err != nil {
		// match notifications are a core feature, refuse to start without them
		zap.S().With(err).Error("failed to create gemini client")
		return err
	}
	a.llm = llm

	a.Scheduler = scheduler.NewScheduler(
		databases.NewItemDatabase(a.dbHelper),
		databases.NewClaimDatabase(a.dbHelper),
		databases.NewJobLockDatabase(a.dbHelper),
	)
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
