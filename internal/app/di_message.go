package app

import (
	"fmt"

	"github.com/tnptm/next-djchat/internal/blob"
	"github.com/tnptm/next-djchat/internal/database"
	messageRepository "github.com/tnptm/next-djchat/internal/message/repository"
	messageUseCase "github.com/tnptm/next-djchat/internal/message/usecase"
	"github.com/tnptm/next-djchat/internal/notify"
	roomUseCase "github.com/tnptm/next-djchat/internal/room/usecase"
)

// attachmentStore is implemented by both attachment repositories. Messages write and
// read attachments; room deletion lists their blob keys.
type attachmentStore interface {
	messageUseCase.AttachmentRepository
	roomUseCase.AttachmentKeyLister
}

type messageComponents struct {
	messageRepo    lazy[messageUseCase.MessageRepository]
	attachmentRepo lazy[attachmentStore]
	blobStore      lazy[*blob.Store]
	broadcaster    lazy[notify.Broadcaster]
	bus            lazy[*notify.Bus]
	messageUseCase lazy[messageUseCase.MessageUseCase]
}

// MessageRepository returns the message repository for the configured driver.
func (c *Container) MessageRepository() (messageUseCase.MessageRepository, error) {
	return c.messageRepo.get(func() (messageUseCase.MessageRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for message repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return messageRepository.NewPostgreSQLMessageRepository(db), nil
		case database.DriverMySQL:
			return messageRepository.NewMySQLMessageRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// AttachmentRepository returns the attachment repository for the configured driver.
func (c *Container) AttachmentRepository() (attachmentStore, error) {
	return c.attachmentRepo.get(func() (attachmentStore, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for attachment repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return messageRepository.NewPostgreSQLAttachmentRepository(db), nil
		case database.DriverMySQL:
			return messageRepository.NewMySQLAttachmentRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// BlobStore returns the attachment bucket opened from BLOB_BUCKET_URL.
func (c *Container) BlobStore() (*blob.Store, error) {
	return c.blobStore.get(func() (*blob.Store, error) {
		return blob.Open(c.ctx, c.config.BlobBucketURL, c.config.BlobPublicBaseURL)
	})
}

// Broadcaster returns the cluster broadcast substrate selected by BROADCAST_DRIVER.
func (c *Container) Broadcaster() (notify.Broadcaster, error) {
	return c.broadcaster.get(func() (notify.Broadcaster, error) {
		switch c.config.BroadcastDriver {
		case "memory", "":
			return notify.NewMemoryBroadcaster(), nil
		case "redis":
			return notify.OpenRedisBroadcaster(c.config.RedisURL)
		case "nats":
			return notify.OpenNATSBroadcaster(c.config.NATSURL, c.config.BroadcastChannelPrefix)
		default:
			return nil, fmt.Errorf("unsupported broadcast driver: %s", c.config.BroadcastDriver)
		}
	})
}

// NotificationBus returns the bus relaying new-message notices to live connections.
// Its Run loop is started by the server command.
func (c *Container) NotificationBus() (*notify.Bus, error) {
	return c.bus.get(func() (*notify.Bus, error) {
		broadcaster, err := c.Broadcaster()
		if err != nil {
			return nil, fmt.Errorf("failed to open broadcaster: %w", err)
		}
		realtimeMetrics, err := c.RealtimeMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get realtime metrics for notification bus: %w", err)
		}
		return notify.NewBus(broadcaster, c.config.BroadcastChannelPrefix, realtimeMetrics, c.Logger()), nil
	})
}

// MessageUseCase returns the message use case wrapped with business metrics.
func (c *Container) MessageUseCase() (messageUseCase.MessageUseCase, error) {
	return c.messageUseCase.get(c.initMessageUseCase)
}

func (c *Container) initMessageUseCase() (messageUseCase.MessageUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for message use case: %w", err)
	}
	messages, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for message use case: %w", err)
	}
	attachments, err := c.AttachmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment repository for message use case: %w", err)
	}
	rooms, err := c.RoomRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get room repository for message use case: %w", err)
	}
	guard, err := c.MembershipGuard()
	if err != nil {
		return nil, fmt.Errorf("failed to get membership guard for message use case: %w", err)
	}
	keyVault, err := c.KeyVault()
	if err != nil {
		return nil, fmt.Errorf("failed to get key vault for message use case: %w", err)
	}
	blobs, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for message use case: %w", err)
	}
	bus, err := c.NotificationBus()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification bus for message use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for message use case: %w", err)
	}

	useCase := messageUseCase.NewMessageUseCase(
		txManager,
		messages,
		attachments,
		rooms,
		guard,
		keyVault,
		c.MessageCipher(),
		blobs,
		bus,
		c.config.MaxAttachmentSize,
		c.Logger(),
	)
	return messageUseCase.NewMessageUseCaseWithMetrics(useCase, businessMetrics), nil
}
