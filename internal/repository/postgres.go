// Package repository содержит реализацию доступа к данным в PostgreSQL.
// Регистрации здесь не хранятся: их источником истины остаётся платёжный
// провайдер. В БД живёт контент сайта и запись об обработанных webhook-событиях.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/birdieway/golf-league/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrTournamentNotFound возвращается, если турнир не найден.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrStandingsNotFound возвращается, если строка таблицы не найдена.
	ErrStandingsNotFound = errors.New("standings entry not found")
	// ErrStandingsExists возвращается при попытке создать дубликат команды в лиге.
	ErrStandingsExists = errors.New("standings entry already exists")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Ретраи полезны для Serialization Failure и Deadlocks; с сетевыми
			// обрывами pgxpool в основном справляется сам.
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// MarkEventProcessed фиксирует идентификатор webhook-события и сообщает, было
// ли оно записано впервые. Повторная доставка того же события возвращает false,
// что позволяет не дублировать побочные эффекты.
func (r *PostgresRepository) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	var first bool
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`INSERT INTO webhook_events (id, event_type) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			eventID, eventType,
		)
		if err != nil {
			return fmt.Errorf("insert webhook event: %w", err)
		}
		first = cmdTag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return first, nil
}

// CreateTournament сохраняет новый турнир и возвращает его с присвоенным идентификатором.
func (r *PostgresRepository) CreateTournament(ctx context.Context, t model.Tournament) (*model.Tournament, error) {
	t.ID = uuid.NewString()

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO tournaments (id, name, date, location, description, course_type, course_par, league, is_visible)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING created_at`,
			t.ID, t.Name, t.Date, t.Location, t.Description, t.CourseType, t.CoursePar, string(t.League), t.IsVisible,
		).Scan(&t.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}

	return &t, nil
}

// GetTournaments возвращает турниры, отсортированные по дате. Пустой league
// означает все лиги; includeHidden добавляет скрытые турниры (админский режим).
func (r *PostgresRepository) GetTournaments(ctx context.Context, league model.LeagueType, includeHidden bool) ([]model.Tournament, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, date, location, description, course_type, course_par, league, is_visible, created_at
		 FROM tournaments
		 WHERE ($1 = '' OR league = $1)
		   AND ($2 OR is_visible)
		 ORDER BY date ASC`,
		string(league), includeHidden,
	)
	if err != nil {
		return nil, fmt.Errorf("select tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []model.Tournament
	for rows.Next() {
		var (
			t  model.Tournament
			lg string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Date, &t.Location, &t.Description,
			&t.CourseType, &t.CoursePar, &lg, &t.IsVisible, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		t.League = model.LeagueType(lg)
		tournaments = append(tournaments, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tournaments, nil
}

// GetTournament возвращает турнир по идентификатору.
func (r *PostgresRepository) GetTournament(ctx context.Context, id string) (*model.Tournament, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, date, location, description, course_type, course_par, league, is_visible, created_at
		 FROM tournaments
		 WHERE id = $1`,
		id,
	)

	var (
		t  model.Tournament
		lg string
	)
	err := row.Scan(&t.ID, &t.Name, &t.Date, &t.Location, &t.Description,
		&t.CourseType, &t.CoursePar, &lg, &t.IsVisible, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("get tournament: %w", err)
	}
	t.League = model.LeagueType(lg)

	return &t, nil
}

// UpdateTournament обновляет сохранённый турнир.
func (r *PostgresRepository) UpdateTournament(ctx context.Context, t model.Tournament) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE tournaments
			 SET name = $2, date = $3, location = $4, description = $5,
			     course_type = $6, course_par = $7, league = $8, is_visible = $9
			 WHERE id = $1`,
			t.ID, t.Name, t.Date, t.Location, t.Description, t.CourseType, t.CoursePar, string(t.League), t.IsVisible,
		)
		if err != nil {
			return fmt.Errorf("update tournament: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrTournamentNotFound
		}
		return nil
	})
}

// DeleteTournament удаляет турнир по идентификатору.
func (r *PostgresRepository) DeleteTournament(ctx context.Context, id string) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete tournament: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrTournamentNotFound
		}
		return nil
	})
}

// ListStandings возвращает строки таблицы лиги, отсортированные по очкам.
func (r *PostgresRepository) ListStandings(ctx context.Context, league model.LeagueType) ([]model.StandingsEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, league, team_name, player_names, total_points, scoring_average, created_at, updated_at
		 FROM standings
		 WHERE ($1 = '' OR league = $1)
		 ORDER BY total_points DESC, team_name ASC`,
		string(league),
	)
	if err != nil {
		return nil, fmt.Errorf("select standings: %w", err)
	}
	defer rows.Close()

	var entries []model.StandingsEntry
	for rows.Next() {
		var (
			e  model.StandingsEntry
			lg string
		)
		if err := rows.Scan(&e.ID, &lg, &e.TeamName, &e.PlayerNames,
			&e.TotalPoints, &e.ScoringAverage, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan standings entry: %w", err)
		}
		e.League = model.LeagueType(lg)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

// CreateStandingsEntry сохраняет новую строку таблицы.
func (r *PostgresRepository) CreateStandingsEntry(ctx context.Context, e model.StandingsEntry) (*model.StandingsEntry, error) {
	e.ID = uuid.NewString()

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO standings (id, league, team_name, player_names, total_points, scoring_average)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING created_at, updated_at`,
			e.ID, string(e.League), e.TeamName, e.PlayerNames, e.TotalPoints, e.ScoringAverage,
		).Scan(&e.CreatedAt, &e.UpdatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s/%s", ErrStandingsExists, e.League, e.TeamName)
		}
		return nil, fmt.Errorf("create standings entry: %w", err)
	}

	return &e, nil
}

// UpdateStandingsEntry обновляет строку таблицы.
func (r *PostgresRepository) UpdateStandingsEntry(ctx context.Context, e model.StandingsEntry) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE standings
			 SET team_name = $2, player_names = $3, total_points = $4, scoring_average = $5, updated_at = now()
			 WHERE id = $1`,
			e.ID, e.TeamName, e.PlayerNames, e.TotalPoints, e.ScoringAverage,
		)
		if err != nil {
			return fmt.Errorf("update standings entry: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrStandingsNotFound
		}
		return nil
	})
}

// DeleteStandingsEntry удаляет строку таблицы.
func (r *PostgresRepository) DeleteStandingsEntry(ctx context.Context, id string) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx, `DELETE FROM standings WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete standings entry: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrStandingsNotFound
		}
		return nil
	})
}

// GetLeaguePrices возвращает стоимость регистрации по всем лигам.
func (r *PostgresRepository) GetLeaguePrices(ctx context.Context) ([]model.LeaguePrice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT league, amount_cents, updated_at FROM league_prices ORDER BY league`,
	)
	if err != nil {
		return nil, fmt.Errorf("select league prices: %w", err)
	}
	defer rows.Close()

	var prices []model.LeaguePrice
	for rows.Next() {
		var (
			p  model.LeaguePrice
			lg string
		)
		if err := rows.Scan(&lg, &p.AmountCents, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan league price: %w", err)
		}
		p.League = model.LeagueType(lg)
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return prices, nil
}

// SetLeaguePrice записывает стоимость регистрации в лиге.
func (r *PostgresRepository) SetLeaguePrice(ctx context.Context, league model.LeagueType, amountCents int64) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO league_prices (league, amount_cents)
			 VALUES ($1, $2)
			 ON CONFLICT (league) DO UPDATE SET amount_cents = EXCLUDED.amount_cents, updated_at = now()`,
			string(league), amountCents,
		)
		if err != nil {
			return fmt.Errorf("upsert league price: %w", err)
		}
		return nil
	})
}
