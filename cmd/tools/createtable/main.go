package main

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "rhci:rhci@tcp(localhost:3306)/rhci_portal?parseTime=true&multiStatements=true&loc=Local"
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS patient_profiles (
	  id BIGINT NOT NULL AUTO_INCREMENT,
	  full_name VARCHAR(200) NOT NULL,
	  funding_required DECIMAL(10,2) NOT NULL DEFAULT 0.00,
	  funding_received DECIMAL(10,2) NOT NULL DEFAULT 0.00,
	  status VARCHAR(20) NOT NULL DEFAULT 'SUBMITTED',
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS donations (
	  id BIGINT NOT NULL AUTO_INCREMENT,
	  amount DECIMAL(10,2) NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'USD',
	  status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
	  transaction_id VARCHAR(128) NULL,
	  payment_method VARCHAR(64) NULL,
	  payment_gateway VARCHAR(64) NULL,
	  patient_id BIGINT NULL,
	  donor_name VARCHAR(200) NULL,
	  is_anonymous TINYINT(1) NOT NULL DEFAULT 0,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  completed_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_donations_transaction_id (transaction_id),
	  KEY ix_donations_status (status),
	  KEY ix_donations_patient_id (patient_id),
	  CONSTRAINT fk_donations_patient FOREIGN KEY (patient_id) REFERENCES patient_profiles(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS patient_timeline_events (
	  id CHAR(36) NOT NULL,
	  patient_id BIGINT NOT NULL,
	  event_type VARCHAR(30) NOT NULL,
	  title VARCHAR(200) NOT NULL,
	  description TEXT NOT NULL,
	  metadata JSON NOT NULL,
	  is_milestone TINYINT(1) NOT NULL DEFAULT 0,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_timeline_patient_created (patient_id, created_at),
	  KEY ix_timeline_event_type (event_type),
	  CONSTRAINT fk_timeline_patient FOREIGN KEY (patient_id) REFERENCES patient_profiles(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Tables created.")
}
