package service

const (
	DefaultIncidentsPerPage     = 15
	DefaultNotificationsPerPage = 20
	DefaultUsersPerPage         = 20
	maxPerPage                  = 100
)

// NormalizePage приводит номер страницы и размер к допустимым значениям
func NormalizePage(page, perPage, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
