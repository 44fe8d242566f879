package providers

import (
	"github.com/samber/do/v2"

	"github.com/eumtools/siteprov-server/internal/config"
	"github.com/eumtools/siteprov-server/internal/listcodec"
	"github.com/eumtools/siteprov-server/internal/logger"
	"github.com/eumtools/siteprov-server/internal/service"
	"github.com/eumtools/siteprov-server/internal/validation"
)

// ProvideCodec provides the inbound field value codec.
func ProvideCodec(i do.Injector) (listcodec.Codec, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return listcodec.Codec{Strict: cfg.Codec.Strict}, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSiteService provides the site listing and request service.
func ProvideSiteService(i do.Injector) (*service.SiteService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	codec := do.MustInvoke[listcodec.Codec](i)

	return service.NewSiteService(storeHandle.ListStore, codec, service.SiteConfig{
		SitesList:  cfg.Lists.Sites,
		HideColumn: cfg.Lists.HideColumn,
		WebAppURL:  cfg.Lists.WebAppURL,
		PageSize:   cfg.Store.PageSize,
	}, log.Logger), nil
}

// ProvideMetadataService provides the form metadata service.
func ProvideMetadataService(i do.Injector) (*service.MetadataService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewMetadataService(storeHandle.ListStore, service.MetadataConfig{
		SitesList:         cfg.Lists.Sites,
		DivisionsList:     cfg.Lists.Divisions,
		SiteTemplatesList: cfg.Lists.SiteTemplates,
		BlacklistList:     cfg.Lists.Blacklist,
		PageSize:          cfg.Store.PageSize,
	}, log.Logger), nil
}
