package domain

import (
	"sort"
	"time"
)

// Kind names a record shape. It doubles as the storage namespace.
type Kind string

const (
	KindImage Kind = "image"
	KindBlog  Kind = "blog"
	KindDoc   Kind = "doc"
)

// Record is a single extracted item.
type Record interface {
	Kind() Kind
	// Key is the identity of the record within its kind.
	Key() string
}

// ImageRecord holds the fields of one container image search result or
// repository page.
type ImageRecord struct {
	Name                string              `json:"name"`
	Uploader            *string             `json:"uploader"`
	IsOfficialImage     bool                `json:"is_official_image"`
	IsVerifiedPublisher bool                `json:"is_verified_publisher"`
	LastUpdate          *string             `json:"last_update"`
	Description         *string             `json:"description"`
	Chips               []string            `json:"chips"`
	Downloads           *int64              `json:"downloads"`
	PullsLastWeek       *int64              `json:"pulls_last_week"`
	Stars               *int64              `json:"stars"`
	Tags                map[string][]string `json:"tags"`
	URL                 string              `json:"url,omitempty"`
	PageNumber          int                 `json:"page_number,omitempty"`
}

func (r *ImageRecord) Kind() Kind   { return KindImage }
func (r *ImageRecord) Key() string { return r.Name }

// CodeBlock is a code listing found in a page.
type CodeBlock struct {
	Content string `json:"content"`
	HTML    string `json:"html"`
}

// Section is the content under one heading of a blog post.
type Section struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Code    []CodeBlock `json:"code"`
}

// BlogPost is one article of the vendor blog.
type BlogPost struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Authors    []string  `json:"authors"`
	Tags       []string  `json:"tags"`
	Categories []string  `json:"categories"`
	PostedOn   string    `json:"posted_on"`
	Published  *string   `json:"published"`
	Content    string    `json:"content"`
	Sections   []Section `json:"sections"`
}

func (p *BlogPost) Kind() Kind   { return KindBlog }
func (p *BlogPost) Key() string { return p.Title }

// DocPage is one page of the documentation site.
type DocPage struct {
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Headings []string    `json:"headings"`
	Markdown string      `json:"markdown"`
	Code     []CodeBlock `json:"code"`
}

func (d *DocPage) Kind() Kind   { return KindDoc }
func (d *DocPage) Key() string { return d.URL }

// Result accumulates the records of one run.
type Result struct {
	RunID      string
	Target     string
	Query      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Paged results are written as a page number to records mapping,
	// the rest as a flat list.
	Paged bool
	Pages map[int][]Record
	// Failures lists the pages that could not be fetched.
	Failures []FailedPage
}

// FailedPage is a page skipped because its fetch failed.
type FailedPage struct {
	URL    string    `json:"url"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// NewResult returns an empty result for target.
func NewResult(runID, target, query string, paged bool) *Result {
	return &Result{
		RunID:  runID,
		Target: target,
		Query:  query,
		Paged:  paged,
		Pages:  make(map[int][]Record),
	}
}

// PageNumbers returns the page numbers holding records, ascending.
func (r *Result) PageNumbers() []int {
	nums := make([]int, 0, len(r.Pages))
	for n := range r.Pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Records returns every record ordered by page number.
func (r *Result) Records() []Record {
	var out []Record
	for _, n := range r.PageNumbers() {
		out = append(out, r.Pages[n]...)
	}
	return out
}

// Count returns the number of records across all pages.
func (r *Result) Count() int {
	total := 0
	for _, recs := range r.Pages {
		total += len(recs)
	}
	return total
}

// ScrapeRequest is the payload accepted by the API.
type ScrapeRequest struct {
	Target     string `json:"target"`
	Query      string `json:"query"`
	Pages      int    `json:"pages"`
	FollowTags bool   `json:"follow_tags"`
}

// JobStatus values.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobStatusResponse is the API response for a job status query.
type JobStatusResponse struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Query      string     `json:"query,omitempty"`
	Status     string     `json:"status"`
	Records    int        `json:"records"`
	Failed     int        `json:"failed_pages"`
	FailReason string     `json:"fail_reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
