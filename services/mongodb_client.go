package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB database and collection names
const (
	MongoDBName                  = "crypto_analysis"
	MongoReportsCollection       = "reports"
	MongoSyncSnapshotsCollection = "sync_snapshots"
)

// MongoDBClient handles the optional MongoDB archive. When MONGODB_URI is
// not configured the client stays disabled and all archive calls are no-ops.
type MongoDBClient struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
	uriSet      bool
	lastError   string
}

// Global MongoDB client instance
var GlobalMongoClient *MongoDBClient

// InitMongoDBClient initializes the MongoDB client
func InitMongoDBClient(mongoURI string) error {
	if mongoURI == "" {
		log.Println("MONGODB_URI not set, MongoDB archive disabled")
		GlobalMongoClient = &MongoDBClient{
			uriSet:    false,
			lastError: "MONGODB_URI environment variable not set",
		}
		return nil
	}

	GlobalMongoClient = &MongoDBClient{
		uriSet: true,
	}

	return GlobalMongoClient.Connect(mongoURI)
}

// Connect establishes the MongoDB connection
func (m *MongoDBClient) Connect(mongoURI string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		m.lastError = fmt.Sprintf("Failed to connect: %v", err)
		log.Printf("Failed to connect to MongoDB: %v", err)
		return err
	}

	if err := client.Ping(ctx, nil); err != nil {
		m.lastError = fmt.Sprintf("Failed to ping: %v", err)
		log.Printf("Failed to ping MongoDB: %v", err)
		client.Disconnect(ctx)
		return err
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(MongoDBName)
	m.isConnected = true
	m.lastError = ""
	m.mu.Unlock()

	log.Println("MongoDB connected successfully")
	return nil
}

// IsConfigured returns whether MongoDB is connected
func (m *MongoDBClient) IsConfigured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// LastError returns the last connection error message
func (m *MongoDBClient) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// Close disconnects from MongoDB
func (m *MongoDBClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.isConnected = false
	return m.client.Disconnect(ctx)
}

// MongoReportDocument represents an archived report
type MongoReportDocument struct {
	Type        string    `bson:"type"`
	Symbol      string    `bson:"symbol,omitempty"`
	Content     string    `bson:"content"`
	AssetCount  int       `bson:"asset_count"`
	GeneratedAt time.Time `bson:"generated_at"`
}

// ArchiveReport stores a generated report in MongoDB
func (m *MongoDBClient) ArchiveReport(doc *MongoReportDocument) error {
	m.mu.RLock()
	connected := m.isConnected
	db := m.database
	m.mu.RUnlock()

	if !connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection(MongoReportsCollection).InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}

	return nil
}

// MongoSyncSnapshot represents an archived sync run with its quotes
type MongoSyncSnapshot struct {
	SyncedAt time.Time            `bson:"synced_at"`
	Result   *QuoteSyncResult     `bson:"result"`
	Quotes   []AssetQuoteSnapshot `bson:"quotes"`
}

// ArchiveSyncSnapshot stores a sync result with the resulting quotes
func (m *MongoDBClient) ArchiveSyncSnapshot(result *QuoteSyncResult, quotes []AssetQuoteSnapshot) error {
	m.mu.RLock()
	connected := m.isConnected
	db := m.database
	m.mu.RUnlock()

	if !connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	snapshot := MongoSyncSnapshot{
		SyncedAt: time.Now(),
		Result:   result,
		Quotes:   quotes,
	}

	_, err := db.Collection(MongoSyncSnapshotsCollection).InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to archive sync snapshot: %w", err)
	}

	return nil
}

// GetRecentReports returns the most recently archived reports
func (m *MongoDBClient) GetRecentReports(limit int) ([]MongoReportDocument, error) {
	m.mu.RLock()
	connected := m.isConnected
	db := m.database
	m.mu.RUnlock()

	if !connected {
		return nil, fmt.Errorf("MongoDB not connected")
	}

	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := db.Collection(MongoReportsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []MongoReportDocument
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	return reports, nil
}
