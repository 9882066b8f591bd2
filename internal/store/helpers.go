package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanDeliveryRecords scans DeliveryRecords from sql.Rows.
func scanDeliveryRecords(rows *sql.Rows) ([]models.DeliveryRecord, error) {
	var records []models.DeliveryRecord
	for rows.Next() {
		var record models.DeliveryRecord
		var userID, title sql.NullString
		var priority string
		err := rows.Scan(&record.NotificationID, &userID, &record.Type, &title, &priority, &record.DeliveredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		record.UserID = userID.String
		record.Title = title.String
		record.Priority = models.Priority(priority)
		records = append(records, record)
	}
	return records, rows.Err()
}
