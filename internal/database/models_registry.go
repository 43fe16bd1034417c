package database

import "skillswap/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserSkill{},
		&models.Swap{},
		&models.AdminMessage{},
		&models.SkillModerationLog{},
	}
}
