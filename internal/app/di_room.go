package app

import (
	"fmt"

	"github.com/tnptm/next-djchat/internal/database"
	roomRepository "github.com/tnptm/next-djchat/internal/room/repository"
	roomService "github.com/tnptm/next-djchat/internal/room/service"
	roomUseCase "github.com/tnptm/next-djchat/internal/room/usecase"
)

type roomComponents struct {
	userRepo       lazy[roomUseCase.UserRepository]
	roomRepo       lazy[roomUseCase.RoomRepository]
	membershipRepo lazy[roomUseCase.MembershipRepository]
	guard          lazy[roomService.MembershipGuard]
	roomUseCase    lazy[roomUseCase.RoomUseCase]
}

// UserRepository returns the read-only user repository for the configured driver.
func (c *Container) UserRepository() (roomUseCase.UserRepository, error) {
	return c.userRepo.get(func() (roomUseCase.UserRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for user repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return roomRepository.NewPostgreSQLUserRepository(db), nil
		case database.DriverMySQL:
			return roomRepository.NewMySQLUserRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// RoomRepository returns the room repository for the configured driver.
func (c *Container) RoomRepository() (roomUseCase.RoomRepository, error) {
	return c.roomRepo.get(func() (roomUseCase.RoomRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for room repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return roomRepository.NewPostgreSQLRoomRepository(db), nil
		case database.DriverMySQL:
			return roomRepository.NewMySQLRoomRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// MembershipRepository returns the membership repository for the configured driver.
func (c *Container) MembershipRepository() (roomUseCase.MembershipRepository, error) {
	return c.membershipRepo.get(func() (roomUseCase.MembershipRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for membership repository: %w", err)
		}
		switch c.config.DBDriver {
		case database.DriverPostgres:
			return roomRepository.NewPostgreSQLMembershipRepository(db), nil
		case database.DriverMySQL:
			return roomRepository.NewMySQLMembershipRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// MembershipGuard returns the access checks shared by rooms and messages.
func (c *Container) MembershipGuard() (roomService.MembershipGuard, error) {
	return c.guard.get(func() (roomService.MembershipGuard, error) {
		memberships, err := c.MembershipRepository()
		if err != nil {
			return nil, err
		}
		users, err := c.UserRepository()
		if err != nil {
			return nil, err
		}
		return roomService.NewMembershipGuard(memberships, users), nil
	})
}

// RoomUseCase returns the room use case wrapped with business metrics.
func (c *Container) RoomUseCase() (roomUseCase.RoomUseCase, error) {
	return c.roomUseCase.get(c.initRoomUseCase)
}

func (c *Container) initRoomUseCase() (roomUseCase.RoomUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for room use case: %w", err)
	}
	rooms, err := c.RoomRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get room repository for room use case: %w", err)
	}
	memberships, err := c.MembershipRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get membership repository for room use case: %w", err)
	}
	attachments, err := c.AttachmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment repository for room use case: %w", err)
	}
	blobs, err := c.BlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob store for room use case: %w", err)
	}
	guard, err := c.MembershipGuard()
	if err != nil {
		return nil, fmt.Errorf("failed to get membership guard for room use case: %w", err)
	}
	keyVault, err := c.KeyVault()
	if err != nil {
		return nil, fmt.Errorf("failed to get key vault for room use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for room use case: %w", err)
	}

	useCase := roomUseCase.NewRoomUseCase(
		txManager,
		rooms,
		memberships,
		attachments,
		blobs,
		guard,
		keyVault,
		c.Logger(),
	)
	return roomUseCase.NewRoomUseCaseWithMetrics(useCase, businessMetrics), nil
}
