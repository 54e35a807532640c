package api

import (
	"context"
	"fmt"

	"coco/conf"
	"coco/internal/cache"
	"coco/internal/dao"
	"coco/internal/dao/memory"
	"coco/internal/dao/query"
	"coco/internal/handler/admin"
	"coco/internal/handler/alert"
	"coco/internal/handler/device"
	"coco/internal/handler/notification"
	"coco/internal/handler/preference"
	"coco/internal/handler/stake"
	"coco/internal/handler/user"
	"coco/internal/market"
	"coco/internal/router"
	"coco/internal/service"
	rcache "coco/pkg/cache"
	"coco/pkg/db"
	"coco/pkg/kafka"
	"coco/pkg/logger"
	"coco/pkg/mail"
	"coco/pkg/push/apns"
	"coco/utils/uuid"

	"gorm.io/gorm"
)

// Stores 各 DAO 的实现，memory 或 gorm
type Stores struct {
	Alert        dao.AlertDao
	User         dao.UserDao
	Notification dao.NotificationDao
	Preference   dao.PreferenceDao
	Stake        dao.StakeDao
	Device       dao.DeviceDao
}

func memoryStores() Stores {
	return Stores{
		Alert:        memory.NewAlertDao(),
		User:         memory.NewUserDao(),
		Notification: memory.NewNotificationDao(),
		Preference:   memory.NewPreferenceDao(),
		Stake:        memory.NewStakeDao(),
		Device:       memory.NewDeviceDao(),
	}
}

func gormStores(gdb *gorm.DB) Stores {
	return Stores{
		Alert:        query.NewAlertDao(gdb),
		User:         query.NewUserDao(gdb),
		Notification: query.NewNotificationDao(gdb),
		Preference:   query.NewPreferenceDao(gdb),
		Stake:        query.NewStakeDao(gdb),
		Device:       query.NewDeviceDao(gdb),
	}
}

// OpenDB 按配置打开 mysql/postgres
func OpenDB(cfg conf.Config) (*gorm.DB, error) {
	return db.Init(db.Config{
		Driver:    cfg.Db.Driver,
		User:      cfg.Db.Username,
		Password:  cfg.Db.Password,
		Host:      cfg.Db.Host,
		Port:      cfg.Db.Port,
		DBName:    cfg.Db.DbName,
		ParseTime: true,
	})
}

// App 服务进程内的全部组件
type App struct {
	Router  Router
	Sweeper *service.Sweeper
	Queue   service.DeliveryQueue
	Stakes  service.StakeService
	closers []func()
}

// Start 启动投递消费与定时评估，ctx 取消后停止
func (a *App) Start(ctx context.Context) {
	a.Queue.Start(ctx)
	go a.Sweeper.Run(ctx)
}

// Close 按创建的逆序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *App) onClose(f func()) {
	a.closers = append(a.closers, f)
}

func NewApp(cfg conf.Config) (*App, error) {
	app := &App{}

	var stores Stores
	if cfg.Db.Driver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		stores = memoryStores()
	} else {
		gdb, err := OpenDB(cfg)
		if err != nil {
			return nil, err
		}
		app.onClose(db.Close)
		stores = gormStores(gdb)
	}

	var summaryCache cache.SummaryCache
	if cfg.Redis.Enabled {
		if err := rcache.InitRedis(cfg.Redis); err != nil {
			app.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.onClose(rcache.CloseRedis)
		summaryCache = cache.NewRedisSummaryCache(rcache.GetRedisClient())
	} else {
		summaryCache = cache.NewLRUSummaryCache(4096)
	}

	node := uuid.NewNode(1)

	prefs := service.NewPreferenceService(stores.Preference)
	notifications := service.NewNotificationService(stores.Notification, node)
	alerts := service.NewAlertService(stores.Alert, stores.User, stores.Notification, summaryCache, cfg.Alert)
	devices := service.NewDeviceService(stores.Device, node)
	stakes := service.NewStakeService(stores.Stake, cfg.Stake, service.NewResolutionPolicy(cfg.Stake))
	app.Stakes = stakes

	gateway := alert.NewGateway(notifications)
	channels := []service.Channel{service.NewInAppChannel(gateway)}
	if cfg.Apns.Enabled {
		pusher, err := apns.NewTokenApns(cfg.Apns)
		if err != nil {
			app.Close()
			return nil, err
		}
		channels = append(channels, service.NewPushChannel(pusher, stores.Device))
	}
	if sender := mail.NewSender(cfg.Email); sender.Enabled() {
		channels = append(channels, service.NewEmailChannel(sender))
	}
	deliverer := service.NewDeliverer(prefs, notifications, cfg.Delivery.Timeout, channels...)

	queue, err := newQueue(cfg, deliverer)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Queue = queue
	app.onClose(queue.Close)

	provider, err := newMetricsProvider(cfg.Market)
	if err != nil {
		app.Close()
		return nil, err
	}
	dispatcher := service.NewDispatcher(prefs, notifications, stores.Notification, stores.User, queue, cfg.Dispatch, cfg.Sweep.Interval)
	app.Sweeper = service.NewSweeper(stores.Alert, provider, stakes, service.NewEvaluator(), dispatcher, cfg.Sweep)

	app.Router = router.NewApiRouter(cfg,
		alert.NewAlertHandler(alerts),
		gateway,
		notification.NewNotificationHandler(notifications),
		preference.NewPreferenceHandler(prefs),
		stake.NewStakeHandler(stakes),
		admin.NewAdminHandler(stakes),
		device.NewDeviceHandler(devices),
		user.NewUserHandler(service.NewUserService(stores.User, stores.Alert, cfg.Alert)),
	)
	return app, nil
}

func newQueue(cfg conf.Config, d *service.Deliverer) (service.DeliveryQueue, error) {
	switch cfg.Delivery.Queue {
	case "kafka":
		if cfg.Kafka.Broker == "" {
			return nil, fmt.Errorf("delivery queue is kafka but kafka.broker is empty")
		}
		return service.NewKafkaQueue(d, kafka.NewKafkaProducer(cfg.Kafka.Broker), kafka.NewKafkaConsumer(cfg.Kafka.Broker),
			cfg.Kafka.Topic, cfg.Kafka.GroupID), nil
	case "", "direct":
		return service.NewDirectQueue(d, cfg.Delivery.Workers, 0), nil
	default:
		return nil, fmt.Errorf("unknown delivery queue %q", cfg.Delivery.Queue)
	}
}

// newMetricsProvider 未配置行情地址时使用空数据源，只有质押池确认的事件会触发
func newMetricsProvider(cfg conf.MarketConfig) (service.MetricsProvider, error) {
	if cfg.BaseURL == "" {
		logger.Warn("market.base-url is empty, only stake-verified events will fire")
		return market.NewStatic(), nil
	}
	return market.NewClient(cfg.BaseURL, cfg.Timeout)
}
