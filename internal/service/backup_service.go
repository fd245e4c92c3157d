package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version                string                         `json:"version"`
	ExportedAt             time.Time                      `json:"exported_at"`
	DatabaseType           string                         `json:"database_type"`
	Accounts               []AccountBackup                `json:"accounts"`
	Tasks                  []models.Task                  `json:"tasks"`
	FamilyLinks            []models.FamilyLink            `json:"family_links"`
	Invitations            []models.Invitation            `json:"invitations"`
	AchievementDefinitions []DefinitionBackup             `json:"achievement_definitions"`
	AchievementUnlocks     []repository.AchievementUnlock `json:"achievement_unlocks"`
}

// AccountBackup carries the password hash that the API representation hides
type AccountBackup struct {
	models.Account
	PasswordHash string `json:"password_hash"`
}

// DefinitionBackup keeps the internal ID and ordering of a catalog entry
type DefinitionBackup struct {
	models.AchievementDefinition
	ID        int64 `json:"internal_id"`
	SortOrder int   `json:"sort_order"`
}

// restoreOrder lists tables parents first; clearing walks it backwards.
var restoreOrder = []string{
	"accounts",
	"achievement_definitions",
	"tasks",
	"family_links",
	"invitations",
	"achievement_unlocks",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{db: db, log: log, now: time.Now}
}

// ExportToFile writes a complete backup to outputPath
func (s *BackupService) ExportToFile(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.Export(ctx, file); err != nil {
		return err
	}
	s.log.Info("database exported", "path", outputPath)
	return nil
}

// Export writes a complete backup as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	backup, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("export complete",
		"accounts", len(backup.Accounts),
		"tasks", len(backup.Tasks),
		"family_links", len(backup.FamilyLinks),
		"invitations", len(backup.Invitations),
		"achievement_definitions", len(backup.AchievementDefinitions),
		"achievement_unlocks", len(backup.AchievementUnlocks),
	)
	return nil
}

// ImportFromFile restores a backup file
func (s *BackupService) ImportFromFile(ctx context.Context, inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.Import(ctx, file, clear)
}

// Import restores a backup in one transaction, keeping original IDs. With
// clear set, existing rows are removed first.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Info("starting import", "version", backup.Version, "exported_at", backup.ExportedAt)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			for i := len(restoreOrder) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+restoreOrder[i]); err != nil {
					return fmt.Errorf("failed to clear %s: %w", restoreOrder[i], err)
				}
			}
		}

		accounts := repository.NewAccountRepository(tx)
		for i := range backup.Accounts {
			a := backup.Accounts[i].Account
			a.PasswordHash = backup.Accounts[i].PasswordHash
			if err := accounts.Restore(ctx, &a); err != nil {
				return err
			}
		}

		achievements := repository.NewAchievementRepository(tx)
		for i := range backup.AchievementDefinitions {
			def := backup.AchievementDefinitions[i].AchievementDefinition
			def.ID = backup.AchievementDefinitions[i].ID
			def.SortOrder = backup.AchievementDefinitions[i].SortOrder
			if err := achievements.RestoreDefinition(ctx, &def); err != nil {
				return err
			}
		}

		tasks := repository.NewTaskRepository(tx)
		for i := range backup.Tasks {
			if err := tasks.Restore(ctx, &backup.Tasks[i]); err != nil {
				return err
			}
		}

		families := repository.NewFamilyRepository(tx)
		for i := range backup.FamilyLinks {
			if err := families.Restore(ctx, &backup.FamilyLinks[i]); err != nil {
				return err
			}
		}

		invitations := repository.NewInvitationRepository(tx)
		for i := range backup.Invitations {
			if err := invitations.Restore(ctx, &backup.Invitations[i]); err != nil {
				return err
			}
		}

		for i := range backup.AchievementUnlocks {
			if err := achievements.RestoreUnlock(ctx, &backup.AchievementUnlocks[i]); err != nil {
				return err
			}
		}

		for _, table := range restoreOrder {
			query := tx.GetDialect().ResetSequenceQuery(table)
			if query == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import backup: %w", err)
	}

	s.log.Info("import complete", "accounts", len(backup.Accounts), "tasks", len(backup.Tasks))
	return nil
}

func (s *BackupService) snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.db.GetDialect().DriverName(),
	}

	accounts, err := repository.NewAccountRepository(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export accounts: %w", err)
	}
	for _, a := range accounts {
		backup.Accounts = append(backup.Accounts, AccountBackup{Account: a, PasswordHash: a.PasswordHash})
	}

	if backup.Tasks, err = repository.NewTaskRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export tasks: %w", err)
	}
	if backup.FamilyLinks, err = repository.NewFamilyRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export family links: %w", err)
	}
	if backup.Invitations, err = repository.NewInvitationRepository(s.db).ListAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to export invitations: %w", err)
	}

	achievements := repository.NewAchievementRepository(s.db)
	defs, err := achievements.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export achievement definitions: %w", err)
	}
	for _, def := range defs {
		backup.AchievementDefinitions = append(backup.AchievementDefinitions, DefinitionBackup{
			AchievementDefinition: def,
			ID:                    def.ID,
			SortOrder:             def.SortOrder,
		})
	}
	if backup.AchievementUnlocks, err = achievements.ListAllUnlocks(ctx); err != nil {
		return nil, fmt.Errorf("failed to export achievement unlocks: %w", err)
	}
	return backup, nil
}
