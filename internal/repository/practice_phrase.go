package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/vntutor_service/internal/client"
)

// PracticePhrase is a target utterance learners can be assessed against.
type PracticePhrase struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Region     string    `json:"region"`
	Difficulty int       `json:"difficulty"`
	Tags       []string  `json:"tags"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetID implements Entity.
func (p *PracticePhrase) GetID() string { return p.ID.String() }

// PracticePhraseRepository reads the practice phrase catalog.
type PracticePhraseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PracticePhrase, error)
	List(ctx context.Context, region string, limit int) ([]*PracticePhrase, error)
}

type PostgresPracticePhraseRepository struct {
	db *client.PostgresClient
}

func NewPostgresPracticePhraseRepository(db *client.PostgresClient) *PostgresPracticePhraseRepository {
	return &PostgresPracticePhraseRepository{db: db}
}

func (r *PostgresPracticePhraseRepository) GetByID(ctx context.Context, id uuid.UUID) (*PracticePhrase, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, fmt.Errorf("database not configured")
	}

	query := `
		SELECT id, text, region, difficulty, tags, is_active, created_at, updated_at
		FROM practice_phrases
		WHERE id = $1 AND is_active = TRUE
	`

	var p PracticePhrase
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Text,
		&p.Region,
		&p.Difficulty,
		&p.Tags,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get practice phrase: %w", err)
	}

	return &p, nil
}

// List returns active phrases, optionally filtered by region, easiest first.
func (r *PostgresPracticePhraseRepository) List(ctx context.Context, region string, limit int) ([]*PracticePhrase, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, fmt.Errorf("database not configured")
	}

	query := `
		SELECT id, text, region, difficulty, tags, is_active, created_at, updated_at
		FROM practice_phrases
		WHERE is_active = TRUE AND ($1 = '' OR region = $1)
		ORDER BY difficulty, created_at
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, region, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list practice phrases: %w", err)
	}
	defer rows.Close()

	var phrases []*PracticePhrase
	for rows.Next() {
		var p PracticePhrase
		if err := rows.Scan(
			&p.ID,
			&p.Text,
			&p.Region,
			&p.Difficulty,
			&p.Tags,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan practice phrase: %w", err)
		}
		phrases = append(phrases, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate practice phrases: %w", err)
	}

	return phrases, nil
}

// InMemoryPracticePhraseRepository serves a fixed phrase set without a
// database.
type InMemoryPracticePhraseRepository struct {
	store *InMemoryRepository[*PracticePhrase]
}

// NewInMemoryPracticePhraseRepository creates a catalog holding phrases.
func NewInMemoryPracticePhraseRepository(phrases ...*PracticePhrase) (*InMemoryPracticePhraseRepository, error) {
	store := NewInMemoryRepository[*PracticePhrase]()
	for _, p := range phrases {
		if err := store.Create(context.Background(), p); err != nil {
			return nil, fmt.Errorf("phrase %s: %w", p.ID, err)
		}
	}
	return &InMemoryPracticePhraseRepository{store: store}, nil
}

func (r *InMemoryPracticePhraseRepository) GetByID(ctx context.Context, id uuid.UUID) (*PracticePhrase, error) {
	p, err := r.store.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryPracticePhraseRepository) List(ctx context.Context, region string, limit int) ([]*PracticePhrase, error) {
	all, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*PracticePhrase
	for _, p := range all {
		if !p.IsActive || (region != "" && !strings.EqualFold(p.Region, region)) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// DefaultPracticePhrases is the starter catalog used without a database.
// IDs are fixed so clients can reference them across restarts.
func DefaultPracticePhrases() []*PracticePhrase {
	mk := func(id, text, region string, difficulty int, tags ...string) *PracticePhrase {
		return &PracticePhrase{
			ID:         uuid.MustParse(id),
			Text:       text,
			Region:     region,
			Difficulty: difficulty,
			Tags:       tags,
			IsActive:   true,
		}
	}
	return []*PracticePhrase{
		mk("6f1c2a40-0000-4000-8000-000000000001", "Xin chào", "north", 1, "greeting"),
		mk("6f1c2a40-0000-4000-8000-000000000002", "Cảm ơn bạn rất nhiều", "north", 1, "courtesy"),
		mk("6f1c2a40-0000-4000-8000-000000000003", "Tôi đang học tiếng Việt", "north", 2, "introduction"),
		mk("6f1c2a40-0000-4000-8000-000000000004", "Trường học ở gần nhà tôi", "north", 3, "tr", "ng"),
		mk("6f1c2a40-0000-4000-8000-000000000005", "Mình ở Huế, chào đỏ bạn", "central", 2, "greeting"),
		mk("6f1c2a40-0000-4000-8000-000000000006", "Dạ, em ở Sài Gòn nhé", "south", 2, "particles"),
		mk("6f1c2a40-0000-4000-8000-000000000007", "Quê hương tôi có con sông xanh", "north", 3, "qu", "nh"),
	}
}
