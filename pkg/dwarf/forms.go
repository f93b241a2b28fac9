package dwarf

// Form is a DW_FORM_* code as it appears in an abbreviation's attribute
// spec. Only the DWARF v4 form set is recognized; anything else is fatal
// at parse time per spec §6.
type Form uint64

const (
	FormAddr        Form = 0x01
	FormBlock2      Form = 0x03
	FormBlock4      Form = 0x04
	FormData2       Form = 0x05
	FormData4       Form = 0x06
	FormData8       Form = 0x07
	FormString      Form = 0x08
	FormBlock       Form = 0x09
	FormBlock1      Form = 0x0a
	FormData1       Form = 0x0b
	FormFlag        Form = 0x0c
	FormSdata       Form = 0x0d
	FormStrp        Form = 0x0e
	FormUdata       Form = 0x0f
	FormRefAddr     Form = 0x10
	FormRef1        Form = 0x11
	FormRef2        Form = 0x12
	FormRef4        Form = 0x13
	FormRef8        Form = 0x14
	FormRefUdata    Form = 0x15
	FormIndirect    Form = 0x16
	FormSecOffset   Form = 0x17
	FormExprloc     Form = 0x18
	FormFlagPresent Form = 0x19
	FormRefSig8     Form = 0x20
)

// Attr is a DW_AT_* code.
type Attr uint64

const (
	AttrSibling       Attr = 0x01
	AttrLocation      Attr = 0x02
	AttrName          Attr = 0x03
	AttrByteSize      Attr = 0x0b
	AttrBitSize       Attr = 0x0d
	AttrStmtList      Attr = 0x10
	AttrLowpc         Attr = 0x11
	AttrHighpc        Attr = 0x12
	AttrLanguage      Attr = 0x13
	AttrCompDir       Attr = 0x1b
	AttrConstValue    Attr = 0x1c
	AttrUpperBound    Attr = 0x2f
	AttrAbstractOrigin Attr = 0x31
	AttrCount         Attr = 0x37
	AttrDataMemberLoc Attr = 0x38
	AttrDeclFile      Attr = 0x3a
	AttrDeclLine      Attr = 0x3b
	AttrDeclaration   Attr = 0x3c
	AttrEncoding      Attr = 0x3e
	AttrExternal      Attr = 0x3f
	AttrFrameBase     Attr = 0x40
	AttrSpecification Attr = 0x47
	AttrType          Attr = 0x49
	AttrRanges        Attr = 0x55
	AttrDataBitOffset Attr = 0x6b
	AttrLinkageName   Attr = 0x6e
)

// Tag is a DW_TAG_* code.
type Tag uint64

const (
	TagArrayType          Tag = 0x01
	TagClassType          Tag = 0x02
	TagEnumerationType    Tag = 0x04
	TagFormalParameter    Tag = 0x05
	TagLexicalBlock       Tag = 0x0b
	TagMember             Tag = 0x0d
	TagPointerType        Tag = 0x0f
	TagCompileUnit        Tag = 0x11
	TagStructureType      Tag = 0x13
	TagSubroutineType     Tag = 0x15
	TagTypedef            Tag = 0x16
	TagUnionType          Tag = 0x17
	TagUnspecifiedParams  Tag = 0x18
	TagVariant            Tag = 0x19
	TagInheritance        Tag = 0x1c
	TagSubrangeType       Tag = 0x21
	TagBaseType           Tag = 0x24
	TagConstType          Tag = 0x26
	TagEnumerator         Tag = 0x28
	TagSubprogram         Tag = 0x2e
	TagVariable           Tag = 0x34
	TagVolatileType       Tag = 0x35
	TagRestrictType       Tag = 0x37
	TagNamespace          Tag = 0x39
	TagPtrToMemberType    Tag = 0x1f
	TagInlinedSubroutine  Tag = 0x1d
)

// Encoding is a DW_ATE_* base-type encoding.
type Encoding uint64

const (
	EncAddress      Encoding = 0x1
	EncBoolean      Encoding = 0x2
	EncComplexFloat Encoding = 0x3
	EncFloat        Encoding = 0x4
	EncSigned       Encoding = 0x5
	EncSignedChar   Encoding = 0x6
	EncUnsigned     Encoding = 0x7
	EncUnsignedChar Encoding = 0x8
)
