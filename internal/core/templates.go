package core

import (
	"context"
	"strings"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/google/uuid"
)

// maxOptionDepth bounds nesting of logic options declared on sub items.
const maxOptionDepth = 4

// ItemDefinition is the authored content of a template item.
type ItemDefinition struct {
	Name        string `json:"name" validate:"required,max=200"`
	Category    string `json:"category" validate:"max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateTemplate persists a new, empty template.
func (s *Service) CreateTemplate(ctx context.Context, name, description string) (Template, Result, error) {
	var (
		created Template
		res     Result
	)
	err := s.run(ctx, "create_template", func(ctx context.Context) (string, error) {
		actor, err := requireTemplateAuthor(ctx)
		if err != nil {
			return "", err
		}
		tpl := Template{Name: strings.TrimSpace(name), Description: description, CreatedBy: actor.ID}
		if err := s.validateStruct(tpl); err != nil {
			return "", err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateTemplate(tpl)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// AddSection appends a section to a template.
func (s *Service) AddSection(ctx context.Context, templateID, name string) (Section, Result, error) {
	var (
		created Section
		res     Result
	)
	err := s.run(ctx, "add_section", func(ctx context.Context) (string, error) {
		if _, err := requireTemplateAuthor(ctx); err != nil {
			return "", err
		}
		sec := Section{TemplateID: templateID, Name: strings.TrimSpace(name)}
		if err := s.validateStruct(sec); err != nil {
			return "", err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			if _, ok := view.FindTemplate(templateID); !ok {
				return domain.NewNotFoundError(EntityTemplate, templateID)
			}
			sec.Position = len(view.ListSections(templateID))
			var err error
			created, err = tx.CreateSection(sec)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// AddItem appends an item with its logic options to a section.
func (s *Service) AddItem(ctx context.Context, sectionID string, def ItemDefinition, options []LogicOption) (TemplateItem, Result, error) {
	var (
		created TemplateItem
		res     Result
	)
	err := s.run(ctx, "add_item", func(ctx context.Context) (string, error) {
		if _, err := requireTemplateAuthor(ctx); err != nil {
			return "", err
		}
		item, err := s.buildTemplateItem(def, options)
		if err != nil {
			return "", err
		}
		item.SectionID = sectionID
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			if _, ok := view.FindSection(sectionID); !ok {
				return domain.NewNotFoundError(EntitySection, sectionID)
			}
			item.Position = len(view.ListTemplateItems(sectionID))
			var err error
			created, err = tx.CreateTemplateItem(item)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateItem replaces an item's definition and logic options. Instantiated
// rooms keep their snapshot.
func (s *Service) UpdateItem(ctx context.Context, itemID string, def ItemDefinition, options []LogicOption) (TemplateItem, Result, error) {
	var (
		updated TemplateItem
		res     Result
	)
	err := s.run(ctx, "update_item", func(ctx context.Context) (string, error) {
		if _, err := requireTemplateAuthor(ctx); err != nil {
			return itemID, err
		}
		next, err := s.buildTemplateItem(def, options)
		if err != nil {
			return itemID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateTemplateItem(itemID, func(item *TemplateItem) error {
				item.Name = next.Name
				item.Category = next.Category
				item.Description = next.Description
				item.LogicOptions = next.LogicOptions
				return nil
			})
			return err
		})
		return itemID, err
	})
	return updated, res, err
}

// ImportTemplate recreates an archived template with its sections and items
// in one transaction. Ids are reassigned; logic option ids are kept so that
// option references stay stable across archives.
func (s *Service) ImportTemplate(ctx context.Context, detail domain.TemplateDetail) (domain.TemplateDetail, Result, error) {
	var (
		out domain.TemplateDetail
		res Result
	)
	err := s.run(ctx, "import_template", func(ctx context.Context) (string, error) {
		actor, err := requireTemplateAuthor(ctx)
		if err != nil {
			return "", err
		}
		tpl := Template{Name: strings.TrimSpace(detail.Template.Name), Description: detail.Template.Description, CreatedBy: actor.ID}
		if err := s.validateStruct(tpl); err != nil {
			return "", err
		}
		type pendingSection struct {
			section Section
			items   []TemplateItem
		}
		pending := make([]pendingSection, 0, len(detail.Sections))
		for _, sw := range detail.Sections {
			sec := Section{Name: strings.TrimSpace(sw.Section.Name)}
			if err := s.validateStruct(sec); err != nil {
				return "", err
			}
			items := make([]TemplateItem, 0, len(sw.Items))
			for _, it := range sw.Items {
				item, err := s.buildTemplateItem(ItemDefinition{Name: it.Name, Category: it.Category, Description: it.Description}, it.LogicOptions)
				if err != nil {
					return "", err
				}
				items = append(items, item)
			}
			pending = append(pending, pendingSection{section: sec, items: items})
		}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err := tx.CreateTemplate(tpl)
			if err != nil {
				return err
			}
			for i, p := range pending {
				p.section.TemplateID = created.ID
				p.section.Position = i
				sec, err := tx.CreateSection(p.section)
				if err != nil {
					return err
				}
				for j, item := range p.items {
					item.SectionID = sec.ID
					item.Position = j
					if _, err := tx.CreateTemplateItem(item); err != nil {
						return err
					}
				}
			}
			out = templateDetail(tx.Snapshot(), created)
			return nil
		})
		return out.Template.ID, err
	})
	return out, res, err
}

// GetTemplate returns a template with its sections and items in display order.
func (s *Service) GetTemplate(ctx context.Context, templateID string) (domain.TemplateDetail, error) {
	var detail domain.TemplateDetail
	err := s.run(ctx, "get_template", func(ctx context.Context) (string, error) {
		if _, err := requireActor(ctx); err != nil {
			return templateID, err
		}
		return templateID, s.store.View(ctx, func(view domain.TransactionView) error {
			tpl, ok := view.FindTemplate(templateID)
			if !ok {
				return domain.NewNotFoundError(EntityTemplate, templateID)
			}
			detail = templateDetail(view, tpl)
			return nil
		})
	})
	return detail, err
}

// ListTemplates returns every template ordered by creation time.
func (s *Service) ListTemplates(ctx context.Context) ([]Template, error) {
	var out []Template
	err := s.run(ctx, "list_templates", func(ctx context.Context) (string, error) {
		if _, err := requireActor(ctx); err != nil {
			return "", err
		}
		return "", s.store.View(ctx, func(view domain.TransactionView) error {
			out = view.ListTemplates()
			return nil
		})
	})
	return out, err
}

func templateDetail(view domain.TransactionView, tpl Template) domain.TemplateDetail {
	detail := domain.TemplateDetail{Template: tpl, Sections: []domain.SectionWithItems{}}
	for _, sec := range view.ListSections(tpl.ID) {
		items := view.ListTemplateItems(sec.ID)
		if items == nil {
			items = []TemplateItem{}
		}
		detail.Sections = append(detail.Sections, domain.SectionWithItems{Section: sec, Items: items})
	}
	return detail
}

func (s *Service) buildTemplateItem(def ItemDefinition, options []LogicOption) (TemplateItem, error) {
	def.Name = strings.TrimSpace(def.Name)
	def.Category = strings.TrimSpace(def.Category)
	if err := s.validateStruct(def); err != nil {
		return TemplateItem{}, err
	}
	normalized, err := s.normalizeLogicOptions(options, 0)
	if err != nil {
		return TemplateItem{}, err
	}
	return TemplateItem{
		Name:         def.Name,
		Category:     def.Category,
		Description:  def.Description,
		LogicOptions: normalized,
	}, nil
}

// normalizeLogicOptions validates option shape at authoring time and assigns
// ids to options that have none.
func (s *Service) normalizeLogicOptions(options []LogicOption, depth int) ([]LogicOption, error) {
	if depth > maxOptionDepth {
		return nil, domain.NewValidationError("logic options nested deeper than %d levels", maxOptionDepth)
	}
	out := domain.CloneLogicOptions(options)
	if out == nil {
		out = []LogicOption{}
	}
	seen := make(map[string]struct{}, len(out))
	for i := range out {
		opt := &out[i]
		opt.ID = strings.TrimSpace(opt.ID)
		opt.Name = strings.TrimSpace(opt.Name)
		if opt.ID == "" {
			opt.ID = uuid.NewString()
		}
		if _, dup := seen[opt.ID]; dup {
			return nil, domain.NewValidationError("logic option id %q declared twice", opt.ID)
		}
		seen[opt.ID] = struct{}{}
		if err := s.validateStruct(*opt); err != nil {
			return nil, err
		}
		if len(opt.SubItems) > opt.ItemsToCreate {
			return nil, domain.NewValidationError("logic option %q lists %d sub items but creates only %d",
				opt.Name, len(opt.SubItems), opt.ItemsToCreate)
		}
		for j := range opt.SubItems {
			sub := &opt.SubItems[j]
			sub.Name = strings.TrimSpace(sub.Name)
			if sub.Name == "" {
				return nil, domain.NewValidationError("logic option %q sub item %d has no name", opt.Name, j+1)
			}
			if sub.Category != nil && strings.TrimSpace(*sub.Category) == "" {
				sub.Category = nil
			}
			nested, err := s.normalizeLogicOptions(sub.LogicOptions, depth+1)
			if err != nil {
				return nil, err
			}
			if len(nested) == 0 {
				nested = nil
			}
			sub.LogicOptions = nested
		}
	}
	return out, nil
}
