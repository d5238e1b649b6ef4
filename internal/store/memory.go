package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/digiteinfotech/kairon/internal/models"
	"github.com/digiteinfotech/kairon/internal/util"
)

// InMemoryStore is the non-persistent backend used by tests and local runs
// without a database DSN.
type InMemoryStore struct {
	mu           sync.RWMutex
	documents    map[string]Document // key: tenant|kind|name, active only
	deleted      []Document
	auditLogs    []models.AuditLogData
	importerLogs []models.ImporterLog
	settings     map[string]models.BotSettings
	locks        map[string]time.Time // key: tenant|class
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		documents: make(map[string]Document),
		settings:  make(map[string]models.BotSettings),
		locks:     make(map[string]time.Time),
	}
}

func docKey(tenant string, kind models.ArtifactKind, name string) string {
	return tenant + "|" + string(kind) + "|" + models.CanonicalName(name)
}

func (s *InMemoryStore) SaveDocument(doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc.Tenant, doc.Kind, doc.Name)
	if _, exists := s.documents[key]; exists {
		return "", &models.AlreadyExistsError{Name: doc.Name, Kind: doc.Kind}
	}
	if doc.ID == "" {
		doc.ID = util.GenerateDocumentID()
	}
	doc.Name = models.CanonicalName(doc.Name)
	doc.Status = true
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}
	s.documents[key] = doc
	return doc.ID, nil
}

func (s *InMemoryStore) UpdateDocument(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc.Tenant, doc.Kind, doc.Name)
	existing, exists := s.documents[key]
	if !exists {
		return fmt.Errorf("update %s %q: %w", doc.Kind, doc.Name, models.ErrNotFound)
	}
	existing.DocJSON = doc.DocJSON
	existing.RawName = doc.RawName
	existing.User = doc.User
	existing.Timestamp = time.Now()
	s.documents[key] = existing
	return nil
}

func (s *InMemoryStore) GetDocument(tenant string, kind models.ArtifactKind, name string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[docKey(tenant, kind, name)]
	if !exists {
		return nil, fmt.Errorf("get %s %q: %w", kind, name, models.ErrNotFound)
	}
	return &doc, nil
}

func (s *InMemoryStore) ListDocuments(tenant string, kind models.ArtifactKind) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.documents {
		if doc.Tenant == tenant && doc.Kind == kind {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func (s *InMemoryStore) SoftDeleteDocument(tenant string, kind models.ArtifactKind, name, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(tenant, kind, name)
	doc, exists := s.documents[key]
	if !exists {
		return fmt.Errorf("delete %s %q: %w", kind, name, models.ErrNotFound)
	}
	doc.Status = false
	doc.User = user
	doc.Timestamp = time.Now()
	s.deleted = append(s.deleted, doc)
	delete(s.documents, key)
	return nil
}

func (s *InMemoryStore) SoftDeleteKind(tenant string, kind models.ArtifactKind, user string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, doc := range s.documents {
		if doc.Tenant == tenant && doc.Kind == kind {
			doc.Status = false
			doc.User = user
			doc.Timestamp = time.Now()
			s.deleted = append(s.deleted, doc)
			delete(s.documents, key)
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) DeleteTenant(tenant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, doc := range s.documents {
		if doc.Tenant == tenant {
			delete(s.documents, key)
		}
	}
	delete(s.settings, tenant)
	return nil
}

func (s *InMemoryStore) AddAuditLog(entry models.AuditLogData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = util.GenerateAuditID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *InMemoryStore) ListAuditLogs(tenant string, from, to time.Time) ([]models.AuditLogData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []models.AuditLogData
	for _, entry := range s.auditLogs {
		if entry.Tenant == tenant && !entry.Timestamp.Before(from) && !entry.Timestamp.After(to) {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

func (s *InMemoryStore) ListAuditLogsByActor(actor string, from, to time.Time) ([]models.AuditLogData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []models.AuditLogData
	for _, entry := range s.auditLogs {
		if entry.Actor == actor && !entry.Timestamp.Before(from) && !entry.Timestamp.After(to) {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

func (s *InMemoryStore) SaveImporterLog(log *models.ImporterLog) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = util.GenerateImportID()
	}
	s.importerLogs = append(s.importerLogs, cloneImporterLog(log))
	return log.ID, nil
}

func (s *InMemoryStore) UpdateImporterLog(log *models.ImporterLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.importerLogs {
		if s.importerLogs[i].ReferenceID == log.ReferenceID && s.importerLogs[i].Tenant == log.Tenant {
			s.importerLogs[i] = cloneImporterLog(log)
			return nil
		}
	}
	return fmt.Errorf("importer log %q: %w", log.ReferenceID, models.ErrNotFound)
}

func (s *InMemoryStore) GetImporterLog(tenant, referenceID string) (*models.ImporterLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.importerLogs {
		if s.importerLogs[i].Tenant == tenant && s.importerLogs[i].ReferenceID == referenceID {
			log := cloneImporterLog(&s.importerLogs[i])
			return &log, nil
		}
	}
	return nil, fmt.Errorf("importer log %q: %w", referenceID, models.ErrNotFound)
}

func (s *InMemoryStore) ListImporterLogs(tenant string, limit int) ([]models.ImporterLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []models.ImporterLog
	for i := len(s.importerLogs) - 1; i >= 0; i-- {
		if s.importerLogs[i].Tenant == tenant {
			logs = append(logs, cloneImporterLog(&s.importerLogs[i]))
			if limit > 0 && len(logs) >= limit {
				break
			}
		}
	}
	return logs, nil
}

func (s *InMemoryStore) CountImporterRunsSince(tenant string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, log := range s.importerLogs {
		if log.Tenant == tenant && !log.StartTimestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) GetBotSettings(tenant string) (*models.BotSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, exists := s.settings[tenant]
	if !exists {
		return nil, fmt.Errorf("bot settings for %q: %w", tenant, models.ErrNotFound)
	}
	return &settings, nil
}

func (s *InMemoryStore) SaveBotSettings(settings models.BotSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settings.Tenant] = settings
	return nil
}

func (s *InMemoryStore) AcquireEventLock(tenant, class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenant + "|" + class
	if _, held := s.locks[key]; held {
		return &models.EventAlreadyInProgressError{Tenant: tenant, Class: class}
	}
	s.locks[key] = time.Now()
	return nil
}

func (s *InMemoryStore) ReleaseEventLock(tenant, class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, tenant+"|"+class)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

// cloneImporterLog deep-copies a log through JSON so callers cannot mutate
// stored state.
func cloneImporterLog(log *models.ImporterLog) models.ImporterLog {
	data, _ := json.Marshal(log)
	var clone models.ImporterLog
	_ = json.Unmarshal(data, &clone)
	return clone
}
