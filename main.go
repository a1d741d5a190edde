package main

import (
	"context"
	"time"

	"github.com/cppla/studyshare/config"
	"github.com/cppla/studyshare/routes"
	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/storage"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

type recordStore interface {
	store.FileStore
	store.SubmissionStore
	store.TombstoneStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records := openRecordStore(cfg)
	blobs := openObjectStore(ctx, cfg)

	rc := utils.NewRedisClient(cfg)
	cache := utils.NewCache(rc)

	tokens, err := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		utils.Sugar.Fatalf("token manager: %v", err)
	}
	guard := utils.NewLoginGuard(rc, cfg.LoginMaxFailures,
		time.Duration(cfg.LoginFailureWindowMinutes)*time.Minute,
		time.Duration(cfg.LoginBanMinutes)*time.Minute)
	auth, err := services.NewAuthService(cfg.AdminKeyHash, cfg.AdminID, cfg.AdminName, tokens, utils.NewTokenBlacklist(rc), guard)
	if err != nil {
		utils.Sugar.Fatalf("auth service: %v", err)
	}

	mailer := utils.NewMailer(cfg)
	if !mailer.Enabled() {
		utils.Sugar.Info("SMTP not configured, notifications disabled")
	}
	notifier := services.NewNotifier(mailer, cfg.NotifyEmail)

	r := routes.SetupRouter(cfg, routes.Services{
		Auth:        auth,
		Files:       services.NewFileService(records, records, blobs, cache, cfg.SignedURLTTL()),
		Submissions: services.NewSubmissionService(records, blobs, cache, notifier, cfg.SignedURLTTL()),
	})

	// Retry blob deletions that failed inline
	sweeper := services.NewBlobSweeper(records, blobs, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute)
	sweeper.Start(ctx)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		err = utils.GraceServerTLS(":"+cfg.AppPort, cfg.TLSCertFile, cfg.TLSKeyFile, r, cancel)
	} else {
		err = utils.GraceServer(":"+cfg.AppPort, r, cancel)
	}
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openRecordStore(cfg config.AppConfig) recordStore {
	if cfg.DBDriver == "memory" {
		utils.Sugar.Warn("using in-memory record store, data is lost on restart")
		return store.NewMemoryStore()
	}
	db, err := config.InitDatabase(cfg, store.Models()...)
	if err != nil {
		utils.Sugar.Fatalf("database: %v", err)
	}
	return store.NewGormStore(db)
}

func openObjectStore(ctx context.Context, cfg config.AppConfig) storage.ObjectStore {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var (
		blobs storage.ObjectStore
		err   error
	)
	switch cfg.StorageDriver {
	case "s3":
		blobs, err = storage.NewS3Store(initCtx, storage.S3Options{
			Endpoint:      cfg.StorageEndpoint,
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			Bucket:        cfg.StorageBucket,
			Region:        cfg.StorageRegion,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
	default:
		blobs, err = storage.NewMinioStore(initCtx, storage.MinioOptions{
			Endpoint:      cfg.StorageEndpoint,
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			Bucket:        cfg.StorageBucket,
			Region:        cfg.StorageRegion,
			UseSSL:        cfg.StorageUseSSL,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
	}
	if err != nil {
		utils.Sugar.Fatalf("object storage (%s): %v", cfg.StorageDriver, err)
	}
	return blobs
}
