// Command agrosense is the farm-management client CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/ekurganova/agrosense/internal/cache"
	"github.com/ekurganova/agrosense/internal/config"
	"github.com/ekurganova/agrosense/internal/datastore"
	"github.com/ekurganova/agrosense/internal/datastore/postgres"
	"github.com/ekurganova/agrosense/internal/flags"
	"github.com/ekurganova/agrosense/internal/limiter"
	"github.com/ekurganova/agrosense/internal/migrate"
	"github.com/ekurganova/agrosense/internal/model"
	"github.com/ekurganova/agrosense/internal/notify"
	providerlocal "github.com/ekurganova/agrosense/internal/provider/local"
	"github.com/ekurganova/agrosense/internal/session"
	"github.com/ekurganova/agrosense/internal/storage"
	filestore "github.com/ekurganova/agrosense/internal/storage/file"
	redisstore "github.com/ekurganova/agrosense/internal/storage/redis"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `agrosense CLI
Usage:
  agrosense <cmd> [args]

Commands:
  version
  register    -email <email> -password <pw> -name <name>
  login       -email <email> -password <pw>
  logout
  whoami
  farms
  add-farm    -name <name> -lat <deg> -lon <deg> -area <ha> [-soil <type>]
  rm-farm     -id <uuid>
  crops
  add-crop    -farm <uuid> -type <crop> [-variety <v>] [-area <ha>]
  activities
  log-activity -crop <uuid> -kind <kind> [-desc <text>] [-cost <n>]
  alerts
  read-alert  -id <uuid>
  market      [-crop <type>]
  weather     -lat <deg> -lon <deg> [-days <n>]
  watch       -lat <deg> -lon <deg>              (runs dashboard refresh loop)
  flags
  set-flag    -name <flag> -on|-off
  prefs       [-lang <code>] [-units <metric|imperial>] [-theme <name>]
`)
	os.Exit(2)
}

// app bundles the wired services for command handlers.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    storage.Store
	sessions *session.Manager
	cache    *cache.Store
	notifier *notify.Notifier
	flags    *flags.Service

	db *postgres.DB
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(a *app, scope string, err error) {
	notice := a.notifier.Handle(scope, err)
	fmt.Fprintf(os.Stderr, "error: %s\n", notice.Message)
	os.Exit(1)
}

// openStorage selects the redis backend when configured, else the file backend.
func openStorage(cfg *config.Config) (storage.Store, error) {
	if cfg.RedisAddr != "" {
		return redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, ""), nil
	}
	dir := cfg.StorageDir
	if dir == "" {
		dir = filestore.DefaultDir()
	}
	return filestore.New(dir)
}

// openDB connects the backing data store; commands that read or mutate farm
// data require it.
func (a *app) openDB(ctx context.Context) error {
	if a.cfg.DatabaseDSN == "" {
		return errors.New("AGROSENSE_DATABASE_DSN is not set")
	}
	if err := migrate.Up(ctx, a.cfg.DatabaseDSN); err != nil {
		return err
	}
	db, err := postgres.New(ctx, a.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// requireIdentity restores the persisted session and fails closed without one.
func (a *app) requireIdentity(ctx context.Context) model.Identity {
	sess, err := a.sessions.Restore(ctx)
	if err != nil {
		fail(a, "session.restore", err)
	}
	if sess == nil {
		fmt.Fprintln(os.Stderr, "error: not logged in")
		os.Exit(1)
	}
	return sess.Identity
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	st, err := openStorage(cfg)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	signKey := cfg.SignKey
	if signKey == "" {
		signKey = "dev-only-signing-key"
	}
	prov, err := providerlocal.New(st, []byte(signKey), cfg.AccessTTL)
	if err != nil {
		logger.Fatal("provider", zap.Error(err))
	}

	lim := limiter.New(st, cfg.LoginWindow, cfg.LoginMax)
	a := &app{
		cfg:   cfg,
		log:   logger,
		store: st,
		sessions: session.NewManager(prov, st, lim, logger,
			session.WithIdleTimeout(cfg.IdleTimeout)),
		cache: cache.New(logger,
			cache.WithFetchTimeout(cfg.FetchTimeout),
			cache.WithRetry(cfg.FetchRetries, time.Second)),
		notifier: notify.New(logger),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.flags = flags.NewService(ctx, st, logger)

	switch cmd {

	case "version":
		fmt.Printf("agrosense %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(args)
		sess, err := a.sessions.Register(ctx, *email, *password, *name)
		if err != nil {
			fail(a, "session.register", err)
		}
		fmt.Printf("registered and logged in as %s\n", sess.Identity.Email)

	case "login":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		sess, err := a.sessions.Login(ctx, *email, *password)
		if err != nil {
			fail(a, "session.login", err)
		}
		fmt.Printf("logged in as %s (expires %s)\n",
			sess.Identity.Email, sess.ExpiresAt.Format(time.RFC3339))

	case "logout":
		if err := a.sessions.Logout(ctx); err != nil {
			fail(a, "session.logout", err)
		}
		fmt.Println("logged out")

	case "whoami":
		id := a.requireIdentity(ctx)
		printJSON(id)

	case "flags":
		printJSON(map[string]bool{
			"advancedAnalytics":   a.flags.Enabled("advancedAnalytics"),
			"pushNotifications":   a.flags.Enabled("pushNotifications"),
			"offlineMode":         a.flags.Enabled("offlineMode"),
			"betaFeatures":        a.flags.Enabled("betaFeatures"),
			"weatherAlerts":       a.flags.Enabled("weatherAlerts"),
			"cropRecommendations": a.flags.Enabled("cropRecommendations"),
			"marketPrices":        a.flags.Enabled("marketPrices"),
		})

	case "set-flag":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "flag name")
		on := fs.Bool("on", false, "enable")
		off := fs.Bool("off", false, "disable")
		_ = fs.Parse(args)
		if *name == "" || *on == *off {
			usage()
		}
		if err := a.flags.Set(ctx, *name, *on); err != nil {
			fail(a, "flags.set", err)
		}
		fmt.Printf("%s = %v\n", *name, *on)

	case "prefs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		lang := fs.String("lang", "", "language code")
		units := fs.String("units", "", "measurement units")
		theme := fs.String("theme", "", "theme name")
		_ = fs.Parse(args)
		p := a.flags.LoadPreferences(ctx)
		if *lang != "" {
			p.Language = *lang
		}
		if *units != "" {
			p.Units = *units
		}
		if *theme != "" {
			p.Theme = *theme
		}
		if *lang != "" || *units != "" || *theme != "" {
			if err := a.flags.SavePreferences(ctx, p); err != nil {
				fail(a, "prefs.save", err)
			}
		}
		printJSON(p)

	case "farms", "add-farm", "rm-farm", "crops", "add-crop",
		"activities", "log-activity", "alerts", "read-alert",
		"market", "weather":
		id := a.requireIdentity(ctx)
		if err := a.openDB(ctx); err != nil {
			fail(a, "datastore.open", err)
		}
		defer a.db.Close()
		a.runDataCommand(ctx, cmd, args, id)

	case "watch":
		id := a.requireIdentity(ctx)
		if err := a.openDB(ctx); err != nil {
			fail(a, "datastore.open", err)
		}
		defer a.db.Close()
		a.runWatch(args, id)

	default:
		usage()
	}
}

// runWatch keeps dashboard keys fresh until interrupted: weather every 30
// minutes, alerts every 5, market prices hourly. The session idle timer stays
// armed; provider session changes are consumed in the background.
func (a *app) runWatch(args []string, id model.Identity) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	alertRepo := postgres.NewAlertRepo(a.db)
	marketRepo := postgres.NewMarketRepo(a.db)
	weatherRepo := postgres.NewWeatherRepo(a.db)

	go a.sessions.Watch(ctx, func(ctx context.Context, sess *model.Session) {
		if sess == nil {
			a.log.Info("session ended, stopping watch")
			stop()
		}
	})

	r := cache.NewRefresher(a.cache, a.log, 2)
	weatherKey := fmt.Sprintf("%s/%.2f,%.2f", datastore.KeyWeather, *lat, *lon)
	r.Register(weatherKey, func(ctx context.Context) (any, error) {
		return weatherRepo.ForLocation(ctx, *lat, *lon, 7)
	}, datastore.WeatherRefresh)
	if a.flags.Enabled("weatherAlerts") {
		r.Register(datastore.OwnerKey(datastore.KeyAlerts, id.ID), func(ctx context.Context) (any, error) {
			return alertRepo.List(ctx, id.ID)
		}, datastore.AlertsRefresh)
	}
	if a.flags.Enabled("marketPrices") {
		r.Register(datastore.KeyMarket, func(ctx context.Context) (any, error) {
			return marketRepo.Latest(ctx, 20)
		}, datastore.MarketRefresh)
	}

	a.log.Info("dashboard refresh running", zap.String("weather_key", weatherKey))
	r.Run(ctx, a.cfg.CacheMaxIdle)
	a.log.Info("watch stopped")
}

// runDataCommand dispatches the commands that touch the backing data store.
// Reads go through the cache; mutations invalidate via the static key table.
func (a *app) runDataCommand(ctx context.Context, cmd string, args []string, id model.Identity) {
	farmRepo := postgres.NewFarmRepo(a.db)
	cropRepo := postgres.NewCropRepo(a.db)
	actRepo := postgres.NewActivityRepo(a.db)
	alertRepo := postgres.NewAlertRepo(a.db)
	marketRepo := postgres.NewMarketRepo(a.db)
	weatherRepo := postgres.NewWeatherRepo(a.db)

	opts := cache.Options{StaleTime: a.cfg.StaleTime}

	switch cmd {

	case "farms":
		v, err := a.cache.Read(ctx, datastore.OwnerKey(datastore.KeyFarms, id.ID),
			func(ctx context.Context) (any, error) { return farmRepo.List(ctx, id.ID) }, opts)
		if err != nil {
			fail(a, "farms.list", err)
		}
		printJSON(v)

	case "add-farm":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "farm name")
		lat := fs.Float64("lat", 0, "latitude")
		lon := fs.Float64("lon", 0, "longitude")
		area := fs.Float64("area", 0, "area in hectares")
		soil := fs.String("soil", "", "soil type")
		_ = fs.Parse(args)
		farm := &model.Farm{
			ID:        uuid.Must(uuid.NewV4()),
			OwnerID:   id.ID,
			Name:      *name,
			Latitude:  *lat,
			Longitude: *lon,
			AreaHa:    *area,
			SoilType:  *soil,
		}
		err := a.cache.Mutate(ctx,
			func(ctx context.Context) error { return farmRepo.Create(ctx, farm) },
			datastore.AffectedKeys(datastore.MutFarmCreate, id.ID)...)
		if err != nil {
			fail(a, "farms.create", err)
		}
		fmt.Printf("farm %s created\n", farm.ID)

	case "rm-farm":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		idStr := fs.String("id", "", "farm id")
		_ = fs.Parse(args)
		farmID := uuid.FromStringOrNil(*idStr)
		err := a.cache.Mutate(ctx,
			func(ctx context.Context) error { return farmRepo.Delete(ctx, id.ID, farmID) },
			datastore.AffectedKeys(datastore.MutFarmDelete, id.ID)...)
		if err != nil {
			fail(a, "farms.delete", err)
		}
		fmt.Println("farm removed")

	case "crops":
		v, err := a.cache.Read(ctx, datastore.OwnerKey(datastore.KeyCrops, id.ID),
			func(ctx context.Context) (any, error) { return cropRepo.List(ctx, id.ID) }, opts)
		if err != nil {
			fail(a, "crops.list", err)
		}
		printJSON(v)

	case "add-crop":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		farmStr := fs.String("farm", "", "farm id")
		cropType := fs.String("type", "", "crop type")
		variety := fs.String("variety", "", "variety")
		area := fs.Float64("area", 0, "area in hectares")
		_ = fs.Parse(args)
		now := time.Now()
		crop := &model.Crop{
			ID:          uuid.Must(uuid.NewV4()),
			OwnerID:     id.ID,
			FarmID:      uuid.FromStringOrNil(*farmStr),
			CropType:    *cropType,
			Variety:     *variety,
			PlantedAt:   now,
			HarvestDue:  now.AddDate(0, 4, 0),
			AreaHa:      *area,
			GrowthStage: "planted",
		}
		err := a.cache.Mutate(ctx,
			func(ctx context.Context) error { return cropRepo.Create(ctx, crop) },
			datastore.AffectedKeys(datastore.MutCropCreate, id.ID)...)
		if err != nil {
			fail(a, "crops.create", err)
		}
		fmt.Printf("crop %s created\n", crop.ID)

	case "activities":
		v, err := a.cache.Read(ctx, datastore.OwnerKey(datastore.KeyActivities, id.ID),
			func(ctx context.Context) (any, error) { return actRepo.List(ctx, id.ID) }, opts)
		if err != nil {
			fail(a, "activities.list", err)
		}
		printJSON(v)

	case "log-activity":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		cropStr := fs.String("crop", "", "crop id")
		kind := fs.String("kind", "", "activity kind")
		desc := fs.String("desc", "", "description")
		cost := fs.Float64("cost", 0, "cost")
		_ = fs.Parse(args)
		act := &model.Activity{
			ID:          uuid.Must(uuid.NewV4()),
			OwnerID:     id.ID,
			CropID:      uuid.FromStringOrNil(*cropStr),
			Kind:        *kind,
			Description: *desc,
			Cost:        *cost,
			PerformedAt: time.Now(),
		}
		err := a.cache.Mutate(ctx,
			func(ctx context.Context) error { return actRepo.Create(ctx, act) },
			datastore.AffectedKeys(datastore.MutActivityCreate, id.ID)...)
		if err != nil {
			fail(a, "activities.create", err)
		}
		fmt.Printf("activity %s logged\n", act.ID)

	case "alerts":
		v, err := a.cache.Read(ctx, datastore.OwnerKey(datastore.KeyAlerts, id.ID),
			func(ctx context.Context) (any, error) { return alertRepo.List(ctx, id.ID) },
			cache.Options{StaleTime: datastore.AlertsRefresh})
		if err != nil {
			fail(a, "alerts.list", err)
		}
		printJSON(v)

	case "read-alert":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		idStr := fs.String("id", "", "alert id")
		_ = fs.Parse(args)
		alertID := uuid.FromStringOrNil(*idStr)
		err := a.cache.Mutate(ctx,
			func(ctx context.Context) error { return alertRepo.MarkRead(ctx, id.ID, alertID) },
			datastore.AffectedKeys(datastore.MutAlertRead, id.ID)...)
		if err != nil {
			fail(a, "alerts.read", err)
		}
		fmt.Println("alert marked read")

	case "market":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		crop := fs.String("crop", "", "crop type filter")
		_ = fs.Parse(args)
		key := datastore.KeyMarket
		fetch := func(ctx context.Context) (any, error) { return marketRepo.Latest(ctx, 20) }
		if *crop != "" {
			key = datastore.KeyMarket + "/" + *crop
			fetch = func(ctx context.Context) (any, error) { return marketRepo.ForCrop(ctx, *crop, 10) }
		}
		v, err := a.cache.Read(ctx, key, fetch, cache.Options{StaleTime: datastore.MarketRefresh})
		if err != nil {
			fail(a, "market.list", err)
		}
		printJSON(v)

	case "weather":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		lat := fs.Float64("lat", 0, "latitude")
		lon := fs.Float64("lon", 0, "longitude")
		days := fs.Int("days", 7, "days of history")
		_ = fs.Parse(args)
		key := fmt.Sprintf("%s/%.2f,%.2f", datastore.KeyWeather, *lat, *lon)
		v, err := a.cache.Read(ctx, key,
			func(ctx context.Context) (any, error) {
				return weatherRepo.ForLocation(ctx, *lat, *lon, *days)
			},
			cache.Options{StaleTime: datastore.WeatherRefresh})
		if err != nil {
			fail(a, "weather.list", err)
		}
		printJSON(v)
	}
}
