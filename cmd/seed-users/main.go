package main

import (
	"context"
	"fmt"
	"time"

	"github.com/coursems/coursems-backend/internal/authz"
	"github.com/coursems/coursems-backend/internal/config"
	"github.com/coursems/coursems-backend/internal/database"
	"github.com/coursems/coursems-backend/internal/logger"
	"github.com/coursems/coursems-backend/internal/model"
	"github.com/coursems/coursems-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "password123"

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)

	fmt.Println("=== Seeding demo users and courses ===")

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	users := []*model.User{
		{Name: "Demo Admin", Email: "admin@example.com", Role: authz.RoleAdmin},
		{Name: "Demo Teacher", Email: "teacher@example.com", Role: authz.RoleTeacher},
		{Name: "Student One", Email: "student1@example.com", Role: authz.RoleStudent},
		{Name: "Student Two", Email: "student2@example.com", Role: authz.RoleStudent},
		{Name: "Student Three", Email: "student3@example.com", Role: authz.RoleStudent},
	}

	for _, u := range users {
		u.PasswordHash = string(hash)
		if err := userRepo.Create(ctx, u); err != nil {
			log.Fatal().Err(err).Str("email", u.Email).Msg("Failed to create user")
		}
		fmt.Printf("Created %-7s %s (id=%d)\n", u.Role, u.Email, u.ID)
	}

	teacher := users[1]
	courses := []*model.Course{
		{
			Name:        "Introduction to Databases",
			Description: "Relational modeling, SQL, transactions.",
			StartDate:   date(2026, 9, 1),
			EndDate:     date(2027, 1, 31),
			CreatedBy:   teacher.ID,
		},
		{
			Name:        "Distributed Systems",
			Description: "Consensus, replication, fault tolerance.",
			StartDate:   date(2026, 9, 1),
			EndDate:     date(2027, 6, 15),
			CreatedBy:   teacher.ID,
		},
	}

	for _, c := range courses {
		if err := courseRepo.Create(ctx, c); err != nil {
			log.Fatal().Err(err).Str("course", c.Name).Msg("Failed to create course")
		}
		fmt.Printf("Created course %q (id=%d)\n", c.Name, c.ID)
	}

	// First student gets a Pending enrollment in the first course so the
	// confirm flow can be exercised right away.
	if err := courseRepo.InsertEnrollment(ctx, courses[0].ID, users[2].ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to create enrollment")
	}
	fmt.Printf("Enrolled %s in %q (Pending)\n", users[2].Email, courses[0].Name)

	fmt.Println("Done. All seed accounts use password:", seedPassword)
}

func date(year int, month time.Month, day int) pgtype.Date {
	return pgtype.Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}
