// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"farmcast/internal/database"
	"farmcast/internal/models"
	"farmcast/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	PostsPerUser   int
	FollowsPerUser int
	ShouldClean    bool
	// Center and RadiusKm bound the generated farm and post coordinates.
	CenterLat float64
	CenterLon float64
	RadiusKm  float64
	// SkipBcrypt stores a cheap hash, for tests only.
	SkipBcrypt bool
}

// DefaultOptions seeds a small community around Lublin.
func DefaultOptions() Options {
	return Options{
		NumUsers:       20,
		PostsPerUser:   5,
		FollowsPerUser: 4,
		ShouldClean:    true,
		CenterLat:      51.2465,
		CenterLon:      22.5684,
		RadiusKm:       40,
	}
}

var (
	farmWords = []string{"North", "South", "Old", "River", "Hill", "Orchard", "Meadow", "Oak", "Willow", "Stone"}
	farmKinds = []string{"field", "farm", "acres", "plot", "orchard", "pasture"}

	categories = []string{"weather", "crops", "machinery", "livestock", "market"}
	postTitles = map[string][]string{
		"weather":   {"Hail last night", "First frost", "Heavy rain incoming", "Dry spell continues"},
		"crops":     {"Wheat is heading", "Potatoes planted", "Rapeseed in bloom", "Corn harvest started"},
		"machinery": {"Tractor for rent", "Combine repair tips", "Looking for a sprayer"},
		"livestock": {"Calves born today", "Feed prices", "Vet recommendation"},
		"market":    {"Grain prices up", "Selling hay bales", "Buying seed potatoes"},
	}
)

// Seeder populates the database through the repositories so that counters stay consistent.
type Seeder struct {
	db           *gorm.DB
	opts         Options
	rnd          *rand.Rand
	users        repository.UserRepository
	farms        repository.FarmRepository
	posts        repository.PostRepository
	interactions repository.InteractionRepository
}

// Summary reports what a run created.
type Summary struct {
	Users   int
	Farms   int
	Posts   int
	Follows int
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Seeder{
		db:           db,
		opts:         opts,
		rnd:          rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		users:        repository.NewUserRepository(db),
		farms:        repository.NewFarmRepository(db),
		posts:        repository.NewPostRepository(db),
		interactions: repository.NewInteractionRepository(db),
	}
}

// ClearAll deletes every row of the application tables, children first.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Cleaning database...")
	tables := database.PersistentModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(tables[i]).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", tables[i], err)
		}
	}
	return nil
}

// Run creates users with one or two farms each, a handful of posts near
// their farms and a random follow graph.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return sum, err
		}
	}

	password, err := s.passwordHash()
	if err != nil {
		return sum, err
	}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.CreateUser(ctx, password)
		if err != nil {
			return sum, err
		}
		users = append(users, user)
		sum.Users++

		farmCount := 1 + s.rnd.Intn(2)
		for j := 0; j < farmCount; j++ {
			farm, err := s.CreateFarm(ctx, user)
			if err != nil {
				return sum, err
			}
			sum.Farms++

			for k := 0; k < s.opts.PostsPerUser/farmCount; k++ {
				if _, err := s.CreatePost(ctx, user, farm); err != nil {
					return sum, err
				}
				sum.Posts++
			}
		}
	}
	log.Printf("👤 Created %d users with %d farms and %d posts", sum.Users, sum.Farms, sum.Posts)

	for _, user := range users {
		for _, target := range s.pick(users, user.ID, s.opts.FollowsPerUser) {
			created, err := s.interactions.Follow(ctx, user.ID, target.ID)
			if err != nil {
				return sum, err
			}
			if created {
				sum.Follows++
			}
		}
	}
	log.Printf("🤝 Created %d follows", sum.Follows)
	return sum, nil
}

func (s *Seeder) passwordHash() (string, error) {
	cost := bcrypt.DefaultCost
	if s.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CreateUser stores a user with generated names and a unique email.
func (s *Seeder) CreateUser(ctx context.Context, passwordHash string) (*models.User, error) {
	first := truncate(gofakeit.FirstName(), 20)
	last := truncate(gofakeit.LastName(), 20)
	user := &models.User{
		FirstName: first,
		LastName:  last,
		Email: strings.ToLower(fmt.Sprintf("%s.%s%d@example.com",
			truncate(strings.ReplaceAll(first, " ", ""), 12),
			truncate(strings.ReplaceAll(last, " ", ""), 12),
			gofakeit.Number(100, 9999))),
		Password: passwordHash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateFarm stores a farm within the configured radius.
func (s *Seeder) CreateFarm(ctx context.Context, user *models.User) (*models.Farm, error) {
	lat, lon := s.around(s.opts.CenterLat, s.opts.CenterLon, s.opts.RadiusKm)
	farm := &models.Farm{
		UserID:    user.ID,
		Name:      fmt.Sprintf("%s %s %d", farmWords[s.rnd.Intn(len(farmWords))], farmKinds[s.rnd.Intn(len(farmKinds))], gofakeit.Number(1, 999)),
		Latitude:  lat,
		Longitude: lon,
	}
	if err := s.farms.Create(ctx, farm); err != nil {
		return nil, err
	}
	return farm, nil
}

// CreatePost stores a post a few kilometres from farm, dated within the last month.
func (s *Seeder) CreatePost(ctx context.Context, user *models.User, farm *models.Farm) (*models.Post, error) {
	category := categories[s.rnd.Intn(len(categories))]
	titles := postTitles[category]
	lat, lon := s.around(farm.Latitude, farm.Longitude, 5)

	post := &models.Post{
		UserID:    user.ID,
		PostName:  titles[s.rnd.Intn(len(titles))],
		Latitude:  lat,
		Longitude: lon,
		Category:  category,
		Text:      gofakeit.Sentence(12),
		Date:      time.Now().UTC().Add(-time.Duration(s.rnd.Intn(30*24)) * time.Hour),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// around returns a point at most radiusKm from (lat, lon).
func (s *Seeder) around(lat, lon, radiusKm float64) (float64, float64) {
	const kmPerDegree = 111.0
	dLat := (s.rnd.Float64()*2 - 1) * radiusKm / kmPerDegree
	dLon := (s.rnd.Float64()*2 - 1) * radiusKm / kmPerDegree
	return clamp(lat+dLat, -90, 90), clamp(lon+dLon, -180, 180)
}

// pick returns up to n users other than self.
func (s *Seeder) pick(users []*models.User, self uint, n int) []*models.User {
	candidates := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != self {
			candidates = append(candidates, u)
		}
	}
	s.rnd.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
