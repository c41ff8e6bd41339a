// Package requestcache memoizes row-store reads for the lifetime of a single
// request. Each entity collection is loaded at most once per request absent
// explicit invalidation, which is what keeps read amplification at one full
// scan per entity instead of one per lookup. A Cache is never shared across
// requests: it is constructed at the start of request handling and discarded
// at the end, and it provides no consistency guarantee beyond its own
// lifetime.
package requestcache

import (
	"context"

	"github.com/haneul-lab/storybook-api/internal/models"
)

// StudentLister and WorkLister are the slices of the repositories the cache
// needs.
type StudentLister interface {
	List(ctx context.Context) ([]models.Student, error)
}

type WorkLister interface {
	List(ctx context.Context, step int) ([]models.Work, error)
}

// Cache is the per-request read cache.
type Cache struct {
	students StudentLister
	works    WorkLister

	// OnLoad, when set, observes each collection load; OnHit observes each
	// access served from the cached partition (metrics hooks).
	OnLoad func(entity string)
	OnHit  func(entity string)

	studentsLoaded bool
	studentList    []models.Student
	tokenIndex     map[string]*models.Student

	workLists map[int][]models.Work
}

// New constructs an empty cache over the given repositories.
func New(students StudentLister, works WorkLister) *Cache {
	return &Cache{students: students, works: works, workLists: make(map[int][]models.Work)}
}

// Students returns the materialized student list, loading it on first use.
func (c *Cache) Students(ctx context.Context) ([]models.Student, error) {
	if c.studentsLoaded {
		if c.OnHit != nil {
			c.OnHit("students")
		}
		return c.studentList, nil
	}
	list, err := c.students.List(ctx)
	if err != nil {
		return nil, err
	}
	c.studentList = list
	c.tokenIndex = make(map[string]*models.Student, len(list))
	for i := range c.studentList {
		if tok := c.studentList[i].Token; tok != "" {
			c.tokenIndex[tok] = &c.studentList[i]
		}
	}
	c.studentsLoaded = true
	if c.OnLoad != nil {
		c.OnLoad("students")
	}
	return c.studentList, nil
}

// FindStudent scans the cached list for the identity key (name, number).
func (c *Cache) FindStudent(ctx context.Context, name string, number int) (*models.Student, error) {
	list, err := c.Students(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == name && list[i].Number == number {
			return &list[i], nil
		}
	}
	return nil, nil
}

// FindStudentByToken resolves a login token in O(1) via the token index.
func (c *Cache) FindStudentByToken(ctx context.Context, token string) (*models.Student, error) {
	if _, err := c.Students(ctx); err != nil {
		return nil, err
	}
	return c.tokenIndex[token], nil
}

// Works returns the materialized work list for one step, loading it on first
// use. Each step is cached and invalidated independently.
func (c *Cache) Works(ctx context.Context, step int) ([]models.Work, error) {
	if list, ok := c.workLists[step]; ok {
		if c.OnHit != nil {
			c.OnHit("works")
		}
		return list, nil
	}
	list, err := c.works.List(ctx, step)
	if err != nil {
		return nil, err
	}
	c.workLists[step] = list
	if c.OnLoad != nil {
		c.OnLoad("works")
	}
	return list, nil
}

// FindWork scans one step for a student's work. Only the matched record's
// payload is ever deserialized; rows scanned past keep their raw payload
// untouched.
func (c *Cache) FindWork(ctx context.Context, name string, number, step int) (*models.Work, error) {
	list, err := c.Works(ctx, step)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].StudentName == name && list[i].StudentNumber == number {
			return &list[i], nil
		}
	}
	return nil, nil
}

// FindWorkByID scans one step for a work's stable identifier.
func (c *Cache) FindWorkByID(ctx context.Context, step int, id string) (*models.Work, error) {
	list, err := c.Works(ctx, step)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, nil
}

// InvalidateStudents drops the student partition so the next access reloads.
// Every mutation of the students collection must call this.
func (c *Cache) InvalidateStudents() {
	c.studentsLoaded = false
	c.studentList = nil
	c.tokenIndex = nil
}

// InvalidateWorks drops one step's partition, or every step when step is 0.
func (c *Cache) InvalidateWorks(step int) {
	if step == 0 {
		c.workLists = make(map[int][]models.Work)
		return
	}
	delete(c.workLists, step)
}

// Clear drops all cached state.
func (c *Cache) Clear() {
	c.InvalidateStudents()
	c.InvalidateWorks(0)
}
