package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/recorever/recorever-backend/internal/models"
)

// SeedUserStore создаёт пользователей при генерации демо-данных.
type SeedUserStore interface {
	Create(ctx context.Context, user *models.User) error
}

// SeedReportStore создаёт заявки при генерации демо-данных.
type SeedReportStore interface {
	Create(ctx context.Context, report *models.Report, schedule *models.ReportSchedule) error
}

// SeedPassword пароль всех демо-аккаунтов.
const SeedPassword = "Password123"

// SeedService генерирует демо-данные для локальной разработки: пользователей
// и пачку lost/found заявок в статусе pending.
type SeedService struct {
	users   SeedUserStore
	reports SeedReportStore
}

// NewSeedService создаёт сервис генерации демо-данных.
func NewSeedService(users SeedUserStore, reports SeedReportStore) *SeedService {
	return &SeedService{users: users, reports: reports}
}

// SeedAccount учётные данные созданного демо-аккаунта.
type SeedAccount struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SeedResult итог генерации.
type SeedResult struct {
	Accounts []SeedAccount `json:"accounts"`
	Reports  int           `json:"reports"`
}

var seedFirstNames = []string{"Alice", "Bob", "Carol", "David", "Elena", "Frank", "Grace", "Henry"}
var seedLastNames = []string{"Smith", "Johnson", "Lee", "Garcia", "Petrov", "Kim", "Brown", "Nguyen"}

var seedItems = []struct {
	name        string
	description string
}{
	{"black leather wallet", "black leather wallet with a zipper and several cards inside"},
	{"blue umbrella", "compact blue umbrella with a wooden handle"},
	{"silver laptop", "silver 13-inch laptop with stickers on the lid"},
	{"red backpack", "red hiking backpack with two side pockets"},
	{"wireless earbuds", "white wireless earbuds in a charging case"},
	{"student id card", "student id card in a transparent plastic holder"},
	{"gray hoodie", "gray zip-up hoodie, size M"},
	{"water bottle", "green metal water bottle with a carabiner"},
}

var seedLocations = []string{
	"Main Library", "Cafeteria", "Gym", "Lecture Hall B", "Parking Lot 2", "Student Center",
}

// SeedData создаёт numUsers демо-пользователей и numReports заявок,
// распределённых между ними. Возвращает учётные данные аккаунтов.
func (s *SeedService) SeedData(ctx context.Context, numUsers, numReports int) (*SeedResult, error) {
	if numUsers <= 0 {
		numUsers = 5
	}
	if numReports <= 0 {
		numReports = 20
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed service: hash password %w", err)
	}

	result := &SeedResult{}
	users := make([]*models.User, 0, numUsers)

	for i := 0; i < numUsers; i++ {
		first := seedFirstNames[rand.Intn(len(seedFirstNames))]
		last := seedLastNames[rand.Intn(len(seedLastNames))]
		user := &models.User{
			Email:        fmt.Sprintf("%s.%s%d@example.com", first, last, rand.Intn(10000)),
			Name:         fmt.Sprintf("%s %s", first, last),
			PasswordHash: string(passHash),
			Role:         models.RoleUser,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("seed service: create user %w", err)
		}

		users = append(users, user)
		result.Accounts = append(result.Accounts, SeedAccount{
			Email:    user.Email,
			Name:     user.Name,
			Password: SeedPassword,
		})
	}

	for i := 0; i < numReports; i++ {
		owner := users[rand.Intn(len(users))]
		item := seedItems[rand.Intn(len(seedItems))]

		kind := models.ReportKindLost
		report := &models.Report{
			UserID:      owner.ID,
			Kind:        kind,
			ItemName:    item.name,
			Location:    seedLocations[rand.Intn(len(seedLocations))],
			Description: item.description,
			Status:      models.ReportStatusPending,
			ReportedAt:  time.Now(),
		}
		if rand.Intn(2) == 0 {
			report.Kind = models.ReportKindFound
			code, err := GenerateCode()
			if err != nil {
				return nil, err
			}
			report.SurrenderCode = &code
		}

		// Демо-заявки проходят тот же путь, что и настоящие: lost-заявка
		// получает расписание удаления в той же транзакции.
		var schedule *models.ReportSchedule
		if report.Kind == models.ReportKindLost {
			schedule = buildSchedule(report.ReportedAt)
		}

		if err := s.reports.Create(ctx, report, schedule); err != nil {
			return nil, fmt.Errorf("seed service: create report %w", err)
		}
		result.Reports++
	}

	return result, nil
}
