// Package repository define los tipos del dominio y las interfaces de
// acceso a datos. Las implementaciones viven en internal/store.
package repository
