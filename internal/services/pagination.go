package services

// PageWindow locates a site page inside the upstream page that contains it.
type PageWindow struct {
	UserPage int
	APIPage  int
	Offset   int
	Size     int
}

// RemapPage maps a 1-based site page onto the upstream page holding it and the
// offset of its first row within that page. sitePageSize must divide
// upstreamPageSize.
func RemapPage(userPage, sitePageSize, upstreamPageSize int) PageWindow {
	if userPage < 1 {
		userPage = 1
	}
	ratio := upstreamPageSize / sitePageSize
	if ratio < 1 {
		ratio = 1
	}
	return PageWindow{
		UserPage: userPage,
		APIPage:  (userPage + ratio - 1) / ratio,
		Offset:   ((userPage - 1) % ratio) * sitePageSize,
		Size:     sitePageSize,
	}
}

// TotalSitePages is the number of site pages needed for count rows.
func TotalSitePages(count int64, sitePageSize int) int {
	if count <= 0 || sitePageSize <= 0 {
		return 0
	}
	return int((count + int64(sitePageSize) - 1) / int64(sitePageSize))
}

// EstimateSitePages approximates the site page count from the upstream page
// count alone. The last upstream page is assumed full.
func EstimateSitePages(upstreamTotalPages, upstreamPageSize, sitePageSize int) int {
	if upstreamTotalPages <= 0 || sitePageSize <= 0 {
		return 0
	}
	rows := upstreamTotalPages * upstreamPageSize
	return (rows + sitePageSize - 1) / sitePageSize
}

// sliceWindow returns rows[offset:offset+size], clamped to the slice bounds.
func sliceWindow[T any](rows []T, offset, size int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
