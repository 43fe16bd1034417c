package database

import (
	"skillswap/internal/models"

	"gorm.io/gorm"
)

const backfillBatchSize = 500

// backfillSearchColumns fills folded search columns on rows written before those columns
// existed. Rows that already carry them are skipped, so it is cheap on every start.
func backfillSearchColumns(db *gorm.DB) error {
	for {
		var users []models.User
		if err := db.Select("id", "name", "location").
			Where("(name_search = '' AND name <> '') OR (location_search = '' AND location <> '')").
			Order("id").Limit(backfillBatchSize).Find(&users).Error; err != nil {
			return err
		}
		for _, u := range users {
			if err := db.Model(&models.User{}).Where("id = ?", u.ID).UpdateColumns(map[string]interface{}{
				"name_search":     models.SearchKey(u.Name),
				"location_search": models.SearchKey(u.Location),
			}).Error; err != nil {
				return err
			}
		}
		if len(users) < backfillBatchSize {
			break
		}
	}

	for {
		var skills []models.UserSkill
		if err := db.Select("id", "skill").
			Where("skill_search = '' AND skill <> ''").
			Order("id").Limit(backfillBatchSize).Find(&skills).Error; err != nil {
			return err
		}
		for _, s := range skills {
			if err := db.Model(&models.UserSkill{}).Where("id = ?", s.ID).
				UpdateColumn("skill_search", models.SearchKey(s.Skill)).Error; err != nil {
				return err
			}
		}
		if len(skills) < backfillBatchSize {
			return nil
		}
	}
}
