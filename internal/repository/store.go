package repository

// ResultStore persists run reports and rankings to MongoDB
type ResultStore struct {
	*RunsRepository
	*RankingsRepository
}

func NewResultStore(mongoRepo *MongoRepository) *ResultStore {
	return &ResultStore{
		RunsRepository:     NewRunsRepository(mongoRepo),
		RankingsRepository: NewRankingsRepository(mongoRepo),
	}
}
