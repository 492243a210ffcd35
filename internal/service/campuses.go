package service

import "github.com/and161185/machtrueke/internal/model"

// FallbackCampuses is shown when the backend list is unavailable. The
// entries carry no numeric id, so they can be browsed but not submitted.
var FallbackCampuses = []model.Campus{
	{Code: "CUAAD", Name: "Centro Universitario de Arte, Arquitectura y Diseño"},
	{Code: "CUCBA", Name: "Centro Universitario de Ciencias Biológicas y Agropecuarias"},
	{Code: "CUCEA", Name: "Centro Universitario de Ciencias Económico Administrativas"},
	{Code: "CUCEI", Name: "Centro Universitario de Ciencias Exactas e Ingenierías"},
	{Code: "CUCS", Name: "Centro Universitario de Ciencias de la Salud"},
	{Code: "CUCSH", Name: "Centro Universitario de Ciencias Sociales y Humanidades"},
	{Code: "CUGDL", Name: "Centro Universitario de Guadalajara"},
	{Code: "CUALTOS", Name: "Centro Universitario de los Altos"},
	{Code: "CUCHAPALA", Name: "Centro Universitario de Chapala"},
	{Code: "CUCIENEGA", Name: "Centro Universitario de La Ciénega"},
	{Code: "CUCOSTA", Name: "Centro Universitario de la Costa"},
	{Code: "CUCSUR", Name: "Centro Universitario de la Costa Sur"},
	{Code: "CULAGOS", Name: "Centro Universitario de los Lagos"},
	{Code: "CUNORTE", Name: "Centro Universitario del Norte"},
	{Code: "CUSUR", Name: "Centro Universitario del Sur"},
	{Code: "CUTLAJO", Name: "Centro Universitario de Tlajomulco"},
	{Code: "CUTLAQUEPAQUE", Name: "Centro Universitario de Tlaquepaque"},
	{Code: "CUTONALA", Name: "Centro Universitario de Tonalá"},
	{Code: "CUVALLES", Name: "Centro Universitario de los Valles"},
	{Code: "UDGVIRTUAL", Name: "UDGVirtual"},
}
