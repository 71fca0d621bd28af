package writer

// =============================================================================
// XML RENDERING
// =============================================================================
//
// XML STRUCTURE:
//
//   <transfers type="PTOC">              <!-- Root element -->
//     <group n="1" key="M-1001">         <!-- One per transfer group -->
//       <record n="1" row="1">           <!-- Global numbering -->
//         <field name="KUNDENR">00001234567</field>
//         <field name="ANTALL_ANDELER">12.5</field>
//       </record>
//     </group>
//     <group n="2" key="M-1002">
//       <record n="2" row="3">...</record>
//     </group>
//   </transfers>
//
// Column names are attribute values rather than element names because several
// canonical names contain characters that XML names cannot hold. Numeric cells
// use '.' as the decimal mark. Without a group column, records sit directly
// under the root.
//
// =============================================================================

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/ginjaninja78/transferfix/internal/repair"
	"github.com/ginjaninja78/transferfix/internal/types"
)

// element is one node of the document tree.
type element struct {
	name       string
	attributes []xml.Attr
	value      string
	children   []element
}

// WriteXML renders the table as an XML document.
func WriteXML(table *types.Table, options Options) ([]byte, error) {
	if options.RootElement == "" {
		options.RootElement = "transfers"
	}

	root, err := buildDocument(table, options)
	if err != nil {
		return nil, err
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}
	if err := writeElement(&buffer, root, options.Indent, 0); err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}

	return buffer.Bytes(), nil
}

// buildDocument constructs the element tree.
func buildDocument(table *types.Table, options Options) (element, error) {
	root := element{name: options.RootElement}
	if options.FileType != "" {
		root.attributes = append(root.attributes, attr("type", string(options.FileType)))
	}

	recordIndex := 1 // Global counter for records

	if options.GroupColumn == "" || table.Index(options.GroupColumn) < 0 {
		for i := range table.Records {
			root.children = append(root.children, buildRecordElement(table, i, recordIndex))
			recordIndex++
		}
		return root, nil
	}

	groups, err := repair.Partition(table, options.GroupColumn)
	if err != nil {
		return element{}, fmt.Errorf("failed to group records: %w", err)
	}

	for n, group := range groups {
		groupElement := element{
			name: "group",
			attributes: []xml.Attr{
				attr("n", strconv.Itoa(n+1)),
				attr("key", group.Key),
			},
		}
		for _, i := range group.Indices {
			groupElement.children = append(groupElement.children, buildRecordElement(table, i, recordIndex))
			recordIndex++
		}
		root.children = append(root.children, groupElement)
	}

	return root, nil
}

// buildRecordElement constructs one record element with a field per column.
func buildRecordElement(table *types.Table, i, n int) element {
	record := element{
		name: "record",
		attributes: []xml.Attr{
			attr("n", strconv.Itoa(n)),
			attr("row", strconv.Itoa(table.Records[i].Row)),
		},
	}
	for col, column := range table.Columns {
		record.children = append(record.children, element{
			name:       "field",
			attributes: []xml.Attr{attr("name", column)},
			value:      FormatCell(table, i, col, false),
		})
	}
	return record
}

// writeElement writes an element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, e element, indent string, level int) error {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(e.name)
	for _, a := range e.attributes {
		buffer.WriteString(" ")
		buffer.WriteString(a.Name.Local)
		buffer.WriteString(`="`)
		if err := xml.EscapeText(buffer, []byte(a.Value)); err != nil {
			return err
		}
		buffer.WriteString(`"`)
	}

	// Self-closing tag.
	if len(e.children) == 0 && e.value == "" {
		buffer.WriteString("/>\n")
		return nil
	}

	buffer.WriteString(">")

	if e.value != "" {
		if err := xml.EscapeText(buffer, []byte(e.value)); err != nil {
			return err
		}
	} else {
		buffer.WriteString("\n")
		for _, child := range e.children {
			if err := writeElement(buffer, child, indent, level+1); err != nil {
				return err
			}
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(e.name)
	buffer.WriteString(">\n")
	return nil
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}
