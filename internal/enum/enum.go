package enum

// ── Group A: Order status sets (CHECK constrained in DB) ──

const (
	FabricacionSinHacer  = "Sin Hacer"
	FabricacionHaciendo  = "Haciendo"
	FabricacionRehacer   = "Rehacer"
	FabricacionRetocar   = "Retocar"
	FabricacionPrioridad = "Prioridad"
	FabricacionVerificar = "Verificar"
	FabricacionHecho     = "Hecho"
)

const (
	VentaFoto        = "Foto"
	VentaTransferido = "Transferido"
	VentaNinguno     = "Ninguno"
)

const (
	EnvioSinEnviar          = "Sin enviar"
	EnvioHacerEtiqueta      = "Hacer Etiqueta"
	EnvioEtiquetaLista      = "Etiqueta Lista"
	EnvioDespachado         = "Despachado"
	EnvioSeguimientoEnviado = "Seguimiento Enviado"
)

const (
	VectorizacionPendiente = "Para Vectorizar"
	VectorizacionHecha     = "Vectorizado"
)

// Option lists in display order.
var (
	EstadosFabricacion = []string{
		FabricacionSinHacer, FabricacionHaciendo, FabricacionRehacer, FabricacionRetocar,
		FabricacionPrioridad, FabricacionVerificar, FabricacionHecho,
	}
	EstadosVenta = []string{VentaFoto, VentaTransferido, VentaNinguno}
	EstadosEnvio = []string{
		EnvioSinEnviar, EnvioHacerEtiqueta, EnvioEtiquetaLista, EnvioDespachado, EnvioSeguimientoEnviado,
	}
	EstadosVectorizacion = []string{VectorizacionPendiente, VectorizacionHecha}
)

// ── Group B: Column names used as filter / patch targets ──

// StatusField names one of the three filterable status columns.
type StatusField string

const (
	StatusFabricacion StatusField = "estado_fabricacion"
	StatusVenta       StatusField = "estado_venta"
	StatusEnvio       StatusField = "estado_envio"
)

// StatusFields lists every status column in table order.
var StatusFields = []StatusField{StatusFabricacion, StatusVenta, StatusEnvio}

// Options returns the fixed option set of a status column.
func (f StatusField) Options() []string {
	switch f {
	case StatusFabricacion:
		return EstadosFabricacion
	case StatusVenta:
		return EstadosVenta
	case StatusEnvio:
		return EstadosEnvio
	}
	return nil
}

// Valid reports whether f is a known status column.
func (f StatusField) Valid() bool {
	return f.Options() != nil
}

// Allows reports whether v belongs to the option set of f.
func (f StatusField) Allows(v string) bool {
	return contains(f.Options(), v)
}

// FileField names one of the three attachment columns of a pedido.
type FileField string

const (
	FileArchivoBase   FileField = "archivo_base"
	FileArchivoVector FileField = "archivo_vector"
	FileFotoSello     FileField = "foto_sello"
)

// FileFields lists every attachment column.
var FileFields = []FileField{FileArchivoBase, FileArchivoVector, FileFotoSello}

// Valid reports whether f is a known attachment column.
func (f FileField) Valid() bool {
	switch f {
	case FileArchivoBase, FileArchivoVector, FileFotoSello:
		return true
	}
	return false
}

// Label is the human name shown on the upload control.
func (f FileField) Label() string {
	switch f {
	case FileArchivoBase:
		return "Archivo Base"
	case FileArchivoVector:
		return "Archivo Vector"
	case FileFotoSello:
		return "Foto Sello"
	}
	return string(f)
}

// IsVectorizacion reports whether v is a known vectorización status.
func IsVectorizacion(v string) bool {
	return contains(EstadosVectorizacion, v)
}

// ── Group C: Operator roles ──

const (
	RoleAdmin      = "ADMIN"
	RoleProduccion = "PRODUCCION"
)

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
