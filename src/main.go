package main

import (
	"context"
	"falcontour/src/boot"
	"falcontour/src/config"
	"falcontour/src/controllers"
	"falcontour/src/lib"
	awslib "falcontour/src/lib/aws"
	"falcontour/src/lib/mailer"
	"falcontour/src/middlewares"
	"falcontour/src/repository"
	"falcontour/src/services"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api/v1"

var emailCheck = validator.New()

var tripDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	date, err := services.ParsePickupDate(raw)
	if err != nil {
		return false
	}
	return date.After(time.Now())
}

var emailListValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	emails, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, email := range emails {
		if err := emailCheck.Var(strings.TrimSpace(email), "required,email"); err != nil {
			return false
		}
	}
	return true
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("tripdate", tripDateValidatorFunc)
		v.RegisterValidation("emaillist", emailListValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func errorStatus(err error) int {
	return controllers.Status(err)
}

func abortWithError(ctx *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("Error on %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
	}
	ctx.JSON(status, gin.H{"error": controllers.ErrorMessage(err)})
}

func viewer(ctx *gin.Context) services.Viewer {
	return controllers.Viewer(ctx)
}

// setupRoutes mounts every route group on router. dedupe may be nil.
func setupRoutes(router *gin.Engine, app *services.App, store repository.Store, cfg *config.Config, dedupe webhookDeduper) {
	controllers.Use(app)
	users := store.Users()

	publicRoutes(router, app)
	guestAuthRoutes(router)
	stripeWebhookRoute(router, app, cfg.StripeWebhookSecret, dedupe)

	apiv1 := apiv1Group(router)
	apiv1.Use(middlewares.AuthMiddleware(cfg.JWTSecret, users))
	userHandlers(apiv1)
	requestHandlers(apiv1, app)
	eventHandlers(apiv1, app)
	paymentHandlers(apiv1, app)

	admin := apiv1Group(router)
	admin.Use(middlewares.AuthMiddleware(cfg.JWTSecret, users), middlewares.AdminOnly)
	adminHandlers(admin, app)
}

func setupSocketServer(r *gin.Engine, hub *lib.SocketHub) {
	r.GET("/socket.io/*any", gin.WrapH(hub.Handler()))
	r.POST("/socket.io/*any", gin.WrapH(hub.Handler()))
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	os.MkdirAll(path.Join(cwd, "logs"), 0o755)
	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	if cfg.Environment == "local" {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "Stripe-Signature")
	cc.AllowOriginFunc = func(origin string) bool {
		if cfg.AppHost == "" {
			return false
		}
		match, _ := regexp.MatchString(cfg.AppHost, origin)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	return cors.New(cc)
}

// buildDeps wires the production collaborators. Optional ones stay nil
// when their backing service is not configured.
func buildDeps(cfg *config.Config, store repository.Store) services.Deps {
	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("Error creating snowflake node: %s\n", err.Error())
	}
	deps := services.Deps{
		Store:    store,
		Gateway:  lib.NewStripeGateway(lib.GetStripeClient()),
		Mailer:   mailer.FromConfig(cfg),
		Verifier: lib.FirebaseVerifier{},
		Node:     node,
		Config:   cfg,
	}
	if cfg.AssetsBucket != "" {
		if client := lib.AWSGetS3Client(); client != nil {
			deps.Blobs = awslib.NewS3Store(client, cfg.AssetsBucket)
		}
	}
	if cfg.PaymentsTopicArn != "" {
		if client := lib.AWSGetSNSClient(); client != nil {
			deps.Events = awslib.NewSNSPublisher(client, cfg.PaymentsTopicArn)
		}
	}
	if rdb := lib.GetRedisClient(); rdb != nil {
		deps.Limiter = lib.NewRedisOnce(rdb, "otp:")
	}
	return deps
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadSecrets(ctx); err != nil {
		log.Fatalf("Error loading secrets: %s\n", err.Error())
	}
	cfg := config.LoadConfig()

	if bucket := os.Getenv("S3_SECRETS_BUCKET"); bucket != "" {
		if client := lib.AWSGetS3Client(); client != nil {
			if err := boot.DownloadSDKFile(ctx, client, bucket, os.Getenv("SECRETS_DIR")); err != nil {
				log.Printf("Error downloading Firebase credentials: %s\n", err.Error())
			}
		}
	}

	store := repository.NewGormStore(boot.InitDb())
	deps := buildDeps(cfg, store)

	router := setupRouter()
	switch cfg.RealtimeDriver {
	case "socketio":
		hub := lib.NewSocketHub(cfg.JWTSecret)
		setupSocketServer(router, hub)
		deps.Pusher = hub
		log.Println("WS server listening for connections...")
	case "pusher":
		deps.Pusher = lib.NewPusherChannels(lib.GetPusherClient())
	}

	app := services.NewApp(deps)
	boot.SeedAdmin(ctx, app, cfg)
	boot.InitScheduler(app, cfg)
	defer boot.StopScheduler()
	boot.InitBroker(ctx, cfg)

	router.Use(corsMiddleware(cfg))
	router.Use(middlewares.Maintenance(cfg.MaintenanceMode))
	registerValidators()

	var dedupe webhookDeduper
	if rdb := lib.GetRedisClient(); rdb != nil {
		dedupe = lib.NewRedisOnce(rdb, "stripe:event:")
	}
	setupRoutes(router, app, store, cfg, dedupe)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		if os.Getenv("TLS_ENABLE") == "true" {
			cwd, _ := os.Getwd()
			certpath := path.Join(cwd, "certificates", "localhost.pem")
			keypath := path.Join(cwd, "certificates", "localhost-key.pem")
			if err := srv.ListenAndServeTLS(certpath, keypath); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %s", err)
			}
			return
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %s", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %s\n", err.Error())
	}
}
