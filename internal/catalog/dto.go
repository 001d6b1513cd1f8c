package catalog

import (
	"fmt"

	"mslearn-downloader/internal/model"
)

// catalogPage is one page of a catalog API response. Collections are
// keyed by their plural type name; nextLink carries the continuation URL
// for paginated results.
type catalogPage struct {
	LearningPaths []pathDTO   `json:"learningPaths"`
	Courses       []courseDTO `json:"courses"`
	Modules       []moduleDTO `json:"modules"`
	Units         []unitDTO   `json:"units"`
	NextLink      string      `json:"nextLink"`
}

func (p *catalogPage) merge(next *catalogPage) {
	p.LearningPaths = append(p.LearningPaths, next.LearningPaths...)
	p.Courses = append(p.Courses, next.Courses...)
	p.Modules = append(p.Modules, next.Modules...)
	p.Units = append(p.Units, next.Units...)
	p.NextLink = next.NextLink
}

type pathDTO struct {
	UID     string   `json:"uid"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	URL     string   `json:"url"`
	Modules []string `json:"modules"`
}

type courseDTO struct {
	UID          string     `json:"uid"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	URL          string     `json:"url"`
	CourseNumber string     `json:"course_number"`
	StudyGuide   []studyRef `json:"study_guide"`
}

// studyRef is a loosely-typed child reference inside a course's study
// guide. Its type string is validated before use.
type studyRef struct {
	UID  string `json:"uid"`
	Type string `json:"type"`
}

type moduleDTO struct {
	UID     string   `json:"uid"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	URL     string   `json:"url"`
	Units   []string `json:"units"`
}

type unitDTO struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
}

func (d pathDTO) toItem() (model.CatalogItem, error) {
	return validatedItem(d.UID, model.TypeLearningPath, d.Title, d.Summary, d.URL)
}

func (d courseDTO) toItem() (model.CatalogItem, error) {
	return validatedItem(d.UID, model.TypeCourse, d.Title, d.Summary, d.URL)
}

func (d moduleDTO) toItem() (model.CatalogItem, error) {
	return validatedItem(d.UID, model.TypeModule, d.Title, d.Summary, d.URL)
}

func validatedItem(uid string, typ model.ItemType, title, summary, url string) (model.CatalogItem, error) {
	if uid == "" {
		return model.CatalogItem{}, fmt.Errorf("catalog item of type %s has no uid", typ)
	}
	return model.CatalogItem{
		UID:     uid,
		Type:    typ,
		Title:   title,
		Summary: summary,
		URL:     url,
	}, nil
}
